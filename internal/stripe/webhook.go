package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event types delivered by the provider that this service acts on.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
)

const SignatureHeader = "Stripe-Signature"

// DefaultTolerance bounds how stale a signed timestamp may be before
// the event is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

var ErrInvalidSignature = errors.New("webhook signature verification failed")

type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSessionObject is the session payload of a
// checkout.session.completed event. Metadata carries the order id the
// session was created with.
type CheckoutSessionObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type PaymentIntentObject struct {
	ID string `json:"id"`
}

// ConstructEvent verifies the provider's signature header against the
// raw payload and returns the decoded event. The header format is
// "t=<unix>,v1=<hex hmac>" where the mac covers "<unix>.<payload>".
func ConstructEvent(payload []byte, header, secret string) (Event, error) {
	var event Event

	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return event, err
	}

	if time.Since(time.Unix(ts, 0)) > DefaultTolerance {
		return event, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := ComputeSignature(time.Unix(ts, 0), payload, secret)
	valid := false
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			valid = true
			break
		}
	}
	if !valid {
		return event, fmt.Errorf("%w: no matching v1 signature", ErrInvalidSignature)
	}

	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

// ComputeSignature returns the hex HMAC-SHA256 the provider would put
// in a v1 entry for the given timestamp and payload.
func ComputeSignature(t time.Time, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(t.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts int64, sigs []string, err error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, nil, fmt.Errorf("%w: malformed signature header", ErrInvalidSignature)
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("%w: header missing t or v1", ErrInvalidSignature)
	}
	return ts, sigs, nil
}
