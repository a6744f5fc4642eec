package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateCheckoutSession(t *testing.T) {
	orderID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, orderID.String(), r.PostForm.Get("metadata[order_id]"))
		assert.Equal(t, "https://shop.example/orders/"+orderID.String(), r.PostForm.Get("success_url"))
		assert.Equal(t, "https://shop.example/orders", r.PostForm.Get("cancel_url"))

		assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "1000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "Blue Mug", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[1][quantity]"))
		assert.Equal(t, "250", r.PostForm.Get("line_items[1][price_data][unit_amount]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://pay.example/s/cs_test_1","payment_intent":"pi_test_1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_123", "https://shop.example/")

	session, err := c.CreateCheckoutSession(context.Background(), orderID, []LineItem{
		{Name: "Blue Mug", UnitPriceCents: 1000, Quantity: 2},
		{Name: "Sticker", UnitPriceCents: 250, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://pay.example/s/cs_test_1", session.URL)
	assert.Equal(t, "pi_test_1", session.PaymentIntent)
}

func TestClient_CreateCheckoutSession_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_123", "https://shop.example")

	_, err := c.CreateCheckoutSession(context.Background(), uuid.New(), []LineItem{
		{Name: "Blue Mug", UnitPriceCents: 1000, Quantity: 1},
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "rate_limit_error")
}

func TestClient_CreateCheckoutSession_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_123", "https://shop.example")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CreateCheckoutSession(ctx, uuid.New(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
