// Package stripe is a thin client for the hosted-checkout flow of the
// payment provider: session creation over HTTP and webhook event
// verification. Only the fields this service consumes are modelled.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	baseURL     string
	secretKey   string
	frontendURL string
	httpClient  *http.Client
}

// NewClient builds a provider client with credentials resolved once at
// process start.
func NewClient(baseURL, secretKey, frontendURL string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		secretKey:   secretKey,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// LineItem is what the provider shows on the payment page. Display
// values only; internal product ids never cross this boundary.
type LineItem struct {
	Name           string
	UnitPriceCents int64
	Quantity       uint
}

type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
}

// APIError is any non-2xx reply from the provider. Callers treat it as
// retryable.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: status %d: %s", e.StatusCode, e.Body)
}

// CreateCheckoutSession opens a hosted checkout session for the order.
// The order id rides along as session metadata so webhook events can be
// correlated back to it.
func (c *Client) CreateCheckoutSession(ctx context.Context, orderID uuid.UUID, lines []LineItem) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", c.frontendURL+"/orders/"+orderID.String())
	form.Set("cancel_url", c.frontendURL+"/orders")
	form.Set("metadata[order_id]", orderID.String())

	for i, li := range lines {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.FormatUint(uint64(li.Quantity), 10))
		form.Set(prefix+"[price_data][currency]", "usd")
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(li.UnitPriceCents, 10))
		form.Set(prefix+"[price_data][product_data][name]", li.Name)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1/checkout/sessions",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &session, nil
}
