package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string

	JWTSecret []byte

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeBaseURL       string
	FrontendURL         string

	KafkaBrokers []string

	// Checkout pricing policy. Flat shipping fee and a tax rate in
	// basis points, overridable per deployment.
	ShippingFeeCents int64
	TaxRateBps       int64
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		ServiceName: envDefault("SERVICE_NAME", "online-store"),
		ServerPort:  envIntDefault("SERVER_PORT", 8080),
		LogLevel:    envDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeBaseURL:       envDefault("STRIPE_BASE_URL", "https://api.stripe.com"),
		FrontendURL:         envDefault("FRONTEND_URL", "http://localhost:3000"),

		KafkaBrokers: csv(os.Getenv("KAFKA_BROKERS")),

		ShippingFeeCents: int64(envIntDefault("SHIPPING_FEE_CENTS", 500)),
		TaxRateBps:       int64(envIntDefault("TAX_RATE_BPS", 1600)),
	}

	MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	MustNonEmpty(cfg.StripeSecretKey, "STRIPE_SECRET_KEY")
	MustNonEmpty(cfg.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")
	MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	return cfg, nil
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
