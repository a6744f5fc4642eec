package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dmarquez/online_store/internal/models"
	"github.com/dmarquez/online_store/internal/repo"
	"github.com/dmarquez/online_store/internal/stripe"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingOrder runs a full checkout and returns the committed order,
// which starts out (pending, pending) with the provider's intent id
// already recorded.
func pendingOrder(t *testing.T, r *repo.GormRepo) models.Order {
	t.Helper()
	svc := newOrderService(r, &fakeGateway{}, &fakePublisher{})
	fx := seedCheckout(t, r, 1000, 5, 2)
	order, _, err := svc.CreateOrder(context.Background(), fx.User.ID, fx.Address.ID)
	require.NoError(t, err)
	return *order
}

func sessionCompletedEvent(orderID uuid.UUID, paymentIntentID string) stripe.Event {
	event := stripe.Event{ID: "evt_" + uuid.NewString()[:8], Type: stripe.EventCheckoutSessionCompleted}
	event.Data.Object = json.RawMessage(fmt.Sprintf(
		`{"id":"cs_1","payment_intent":%q,"metadata":{"order_id":%q}}`,
		paymentIntentID, orderID,
	))
	return event
}

func paymentIntentEvent(eventType, paymentIntentID string) stripe.Event {
	event := stripe.Event{ID: "evt_" + uuid.NewString()[:8], Type: eventType}
	event.Data.Object = json.RawMessage(fmt.Sprintf(`{"id":%q}`, paymentIntentID))
	return event
}

func TestPaymentReconciler_SessionCompleted(t *testing.T) {
	r := newTestRepo(t)
	pub := &fakePublisher{}
	rec := NewPaymentReconciler(r, pub)
	ctx := context.Background()

	order := pendingOrder(t, r)

	require.NoError(t, rec.HandleSessionCompleted(ctx, order.ID, "pi_1"))

	got := reloadOrder(t, r, order.ID)
	assert.Equal(t, models.OrderStatusProcessing, got.OrderStatus)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
	require.NotNil(t, got.TransactionID)
	assert.Equal(t, "pi_1", *got.TransactionID)

	// Duplicate delivery is a no-op: state unchanged, no second event.
	require.NoError(t, rec.HandleSessionCompleted(ctx, order.ID, "pi_1"))
	again := reloadOrder(t, r, order.ID)
	assert.Equal(t, models.PaymentStatusCompleted, again.PaymentStatus)
	assert.Equal(t, []string{"payment_completed"}, pub.typesSeen())
}

func TestPaymentReconciler_SessionCompleted_UnknownOrder(t *testing.T) {
	r := newTestRepo(t)
	rec := NewPaymentReconciler(r, &fakePublisher{})

	// The checkout transaction may not have committed yet; this is an
	// accepted race, not an error.
	require.NoError(t, rec.HandleSessionCompleted(context.Background(), uuid.New(), "pi_1"))
}

func TestPaymentReconciler_PaymentSucceeded_Fallback(t *testing.T) {
	r := newTestRepo(t)
	pub := &fakePublisher{}
	rec := NewPaymentReconciler(r, pub)
	ctx := context.Background()

	order := pendingOrder(t, r)
	require.NotNil(t, order.TransactionID)

	// The intent event lands without a preceding session event and
	// still completes the order.
	require.NoError(t, rec.HandlePaymentSucceeded(ctx, *order.TransactionID))

	got := reloadOrder(t, r, order.ID)
	assert.Equal(t, models.OrderStatusProcessing, got.OrderStatus)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)

	// Replaying it changes nothing.
	require.NoError(t, rec.HandlePaymentSucceeded(ctx, *order.TransactionID))
	assert.Equal(t, []string{"payment_completed"}, pub.typesSeen())
}

func TestPaymentReconciler_PaymentSucceeded_UnknownIntent(t *testing.T) {
	r := newTestRepo(t)
	rec := NewPaymentReconciler(r, &fakePublisher{})

	require.NoError(t, rec.HandlePaymentSucceeded(context.Background(), "pi_never_seen"))
}

func TestPaymentReconciler_SessionThenIntent_SameTerminalState(t *testing.T) {
	r := newTestRepo(t)
	pub := &fakePublisher{}
	rec := NewPaymentReconciler(r, pub)
	ctx := context.Background()

	order := pendingOrder(t, r)

	require.NoError(t, rec.HandleSessionCompleted(ctx, order.ID, "pi_1"))
	require.NoError(t, rec.HandlePaymentSucceeded(ctx, "pi_1"))

	got := reloadOrder(t, r, order.ID)
	assert.Equal(t, models.OrderStatusProcessing, got.OrderStatus)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
	assert.Equal(t, []string{"payment_completed"}, pub.typesSeen())
}

func TestPaymentReconciler_PaymentFailed(t *testing.T) {
	r := newTestRepo(t)
	pub := &fakePublisher{}
	rec := NewPaymentReconciler(r, pub)
	ctx := context.Background()

	order := pendingOrder(t, r)
	require.NotNil(t, order.TransactionID)

	require.NoError(t, rec.HandlePaymentFailed(ctx, *order.TransactionID))

	got := reloadOrder(t, r, order.ID)
	assert.Equal(t, models.OrderStatusCancelled, got.OrderStatus)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)

	// A late success event must not move a failed order to completed.
	require.NoError(t, rec.HandlePaymentSucceeded(ctx, *order.TransactionID))
	after := reloadOrder(t, r, order.ID)
	assert.Equal(t, models.OrderStatusCancelled, after.OrderStatus)
	assert.Equal(t, models.PaymentStatusFailed, after.PaymentStatus)

	// And a duplicate failure stays a no-op.
	require.NoError(t, rec.HandlePaymentFailed(ctx, *order.TransactionID))
	assert.Equal(t, []string{"payment_failed"}, pub.typesSeen())
}

func TestPaymentReconciler_FailedAfterCompleted_NoRegression(t *testing.T) {
	r := newTestRepo(t)
	rec := NewPaymentReconciler(r, &fakePublisher{})
	ctx := context.Background()

	order := pendingOrder(t, r)
	require.NoError(t, rec.HandleSessionCompleted(ctx, order.ID, "pi_1"))

	require.NoError(t, rec.HandlePaymentFailed(ctx, "pi_1"))

	got := reloadOrder(t, r, order.ID)
	assert.Equal(t, models.OrderStatusProcessing, got.OrderStatus)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
}

func TestPaymentReconciler_HandleProviderEvent_Dispatch(t *testing.T) {
	r := newTestRepo(t)
	rec := NewPaymentReconciler(r, &fakePublisher{})
	ctx := context.Background()

	order := pendingOrder(t, r)

	require.NoError(t, rec.HandleProviderEvent(ctx, sessionCompletedEvent(order.ID, "pi_1")))
	got := reloadOrder(t, r, order.ID)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)

	// Unknown event types are acknowledged without effect.
	unknown := stripe.Event{ID: "evt_x", Type: "customer.created"}
	unknown.Data.Object = json.RawMessage(`{}`)
	require.NoError(t, rec.HandleProviderEvent(ctx, unknown))
}

func TestPaymentReconciler_HandleProviderEvent_BadMetadata(t *testing.T) {
	r := newTestRepo(t)
	rec := NewPaymentReconciler(r, &fakePublisher{})

	event := stripe.Event{ID: "evt_bad", Type: stripe.EventCheckoutSessionCompleted}
	event.Data.Object = json.RawMessage(`{"id":"cs_1","metadata":{}}`)

	err := rec.HandleProviderEvent(context.Background(), event)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPaymentReconciler_IntentEvents_Dispatch(t *testing.T) {
	r := newTestRepo(t)
	rec := NewPaymentReconciler(r, &fakePublisher{})
	ctx := context.Background()

	order := pendingOrder(t, r)
	require.NotNil(t, order.TransactionID)

	require.NoError(t, rec.HandleProviderEvent(ctx,
		paymentIntentEvent(stripe.EventPaymentIntentFailed, *order.TransactionID)))

	got := reloadOrder(t, r, order.ID)
	assert.Equal(t, models.OrderStatusCancelled, got.OrderStatus)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)
}
