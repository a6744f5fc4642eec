package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmarquez/online_store/internal/config"
	"github.com/dmarquez/online_store/internal/httpserver"
	"github.com/dmarquez/online_store/internal/logging"
	"github.com/dmarquez/online_store/internal/models"
	"github.com/dmarquez/online_store/internal/mykafka"
	"github.com/dmarquez/online_store/internal/repo"
	"github.com/dmarquez/online_store/internal/service"
	"github.com/dmarquez/online_store/internal/stripe"
	"github.com/dmarquez/online_store/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.ServiceName, cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(database, models.All()...); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	gormRepo := &repo.GormRepo{DB: database}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers)
	}

	gateway := stripe.NewClient(cfg.StripeBaseURL, cfg.StripeSecretKey, cfg.FrontendURL)

	orderService := &service.OrderService{
		Repo:    gormRepo,
		Gateway: gateway,
		Pricing: service.Pricing{
			ShippingFeeCents: cfg.ShippingFeeCents,
			TaxRateBps:       cfg.TaxRateBps,
		},
	}
	reconciler := service.NewPaymentReconciler(gormRepo, nil)
	if producer != nil {
		orderService.Producer = producer
		reconciler.Producer = producer
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.CORS())
	e.Use(httpserver.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		OrderHandler:   &httpserver.OrderHTTP{Svc: orderService},
		CartHandler:    &httpserver.CartHTTP{Svc: orderService},
		WebhookHandler: &httpserver.WebhookHTTP{Reconciler: reconciler, WebhookSecret: cfg.StripeWebhookSecret},
		JWTSecret:      cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
