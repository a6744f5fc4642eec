package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmarquez/online_store/internal/logging"
	"github.com/dmarquez/online_store/internal/models"
	"github.com/dmarquez/online_store/internal/repo"
	"github.com/dmarquez/online_store/internal/stripe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentReconciler applies asynchronous provider events to orders.
// Every handler re-reads the order under lock and checks the current
// state before writing, so duplicate and out-of-order deliveries are
// no-ops and a completed order can never regress to failed.
type PaymentReconciler struct {
	Repo     *repo.GormRepo
	Producer EventPublisher

	handlers map[string]func(context.Context, stripe.Event) error
}

func NewPaymentReconciler(r *repo.GormRepo, producer EventPublisher) *PaymentReconciler {
	rec := &PaymentReconciler{Repo: r, Producer: producer}
	rec.handlers = map[string]func(context.Context, stripe.Event) error{
		stripe.EventCheckoutSessionCompleted: rec.onSessionCompleted,
		stripe.EventPaymentIntentSucceeded:   rec.onPaymentSucceeded,
		stripe.EventPaymentIntentFailed:      rec.onPaymentFailed,
	}
	return rec
}

// HandleProviderEvent dispatches one verified webhook event. Unknown
// event types are logged and acknowledged so the provider stops
// retrying them.
func (r *PaymentReconciler) HandleProviderEvent(ctx context.Context, event stripe.Event) error {
	h, ok := r.handlers[event.Type]
	if !ok {
		logging.FromContext(ctx).Info("webhook_event_unhandled", "event_id", event.ID, "type", event.Type)
		return nil
	}
	return h(ctx, event)
}

func (r *PaymentReconciler) onSessionCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSessionObject
	if err := json.Unmarshal(event.Data.Object, &sess); err != nil {
		return fmt.Errorf("%w: decode checkout session: %v", ErrValidation, err)
	}
	orderID, err := uuid.Parse(sess.Metadata["order_id"])
	if err != nil {
		return fmt.Errorf("%w: session %s carries no usable order_id metadata", ErrValidation, sess.ID)
	}
	return r.HandleSessionCompleted(ctx, orderID, sess.PaymentIntent)
}

func (r *PaymentReconciler) onPaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntentObject
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return fmt.Errorf("%w: decode payment intent: %v", ErrValidation, err)
	}
	return r.HandlePaymentSucceeded(ctx, intent.ID)
}

func (r *PaymentReconciler) onPaymentFailed(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntentObject
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return fmt.Errorf("%w: decode payment intent: %v", ErrValidation, err)
	}
	return r.HandlePaymentFailed(ctx, intent.ID)
}

// HandleSessionCompleted marks the order paid and records the
// provider's payment intent as the transaction id.
func (r *PaymentReconciler) HandleSessionCompleted(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error {
	l := logging.FromContext(ctx).With("order_id", orderID, "payment_intent", paymentIntentID)

	var applied *models.Order
	err := r.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Race with the checkout transaction: it may not have
			// committed yet. The provider redelivers, so just drop it.
			l.Info("session_completed_order_missing")
			return nil
		}
		if err != nil {
			return err
		}
		if order.PaymentStatus == models.PaymentStatusCompleted {
			l.Info("session_completed_duplicate")
			return nil
		}
		if !order.PaymentStatus.CanTransition(models.PaymentStatusCompleted) ||
			!order.OrderStatus.CanTransition(models.OrderStatusProcessing) {
			l.Warn("session_completed_ignored",
				"order_status", order.OrderStatus, "payment_status", order.PaymentStatus)
			return nil
		}

		if err := tx.UpdateOrderState(ctx, order.ID,
			models.OrderStatusProcessing, models.PaymentStatusCompleted, &paymentIntentID); err != nil {
			return err
		}
		order.OrderStatus = models.OrderStatusProcessing
		order.PaymentStatus = models.PaymentStatusCompleted
		order.TransactionID = &paymentIntentID
		applied = order
		return nil
	})
	if err != nil {
		return err
	}

	if applied != nil {
		l.Info("order_payment_completed")
		r.publish(ctx, "payment_completed", applied)
	}
	return nil
}

// HandlePaymentSucceeded is the fallback completion path for providers
// that deliver the intent event before, or instead of, the session
// event. An unknown intent id is expected (the session event carrying
// it may not have been applied yet) and is not an error.
func (r *PaymentReconciler) HandlePaymentSucceeded(ctx context.Context, paymentIntentID string) error {
	l := logging.FromContext(ctx).With("payment_intent", paymentIntentID)

	var applied *models.Order
	err := r.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		order, err := tx.GetOrderByTransactionForUpdate(ctx, paymentIntentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Info("payment_succeeded_order_unknown")
			return nil
		}
		if err != nil {
			return err
		}
		if order.PaymentStatus == models.PaymentStatusCompleted {
			l.Info("payment_succeeded_duplicate", "order_id", order.ID)
			return nil
		}
		if !order.PaymentStatus.CanTransition(models.PaymentStatusCompleted) ||
			!order.OrderStatus.CanTransition(models.OrderStatusProcessing) {
			l.Warn("payment_succeeded_ignored", "order_id", order.ID,
				"order_status", order.OrderStatus, "payment_status", order.PaymentStatus)
			return nil
		}

		if err := tx.UpdateOrderState(ctx, order.ID,
			models.OrderStatusProcessing, models.PaymentStatusCompleted, nil); err != nil {
			return err
		}
		order.OrderStatus = models.OrderStatusProcessing
		order.PaymentStatus = models.PaymentStatusCompleted
		applied = order
		return nil
	})
	if err != nil {
		return err
	}

	if applied != nil {
		l.Info("order_payment_completed", "order_id", applied.ID)
		r.publish(ctx, "payment_completed", applied)
	}
	return nil
}

// HandlePaymentFailed cancels the order unless the payment already
// reached a terminal state.
func (r *PaymentReconciler) HandlePaymentFailed(ctx context.Context, paymentIntentID string) error {
	l := logging.FromContext(ctx).With("payment_intent", paymentIntentID)

	var applied *models.Order
	err := r.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		order, err := tx.GetOrderByTransactionForUpdate(ctx, paymentIntentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Info("payment_failed_order_unknown")
			return nil
		}
		if err != nil {
			return err
		}
		if order.PaymentStatus == models.PaymentStatusFailed &&
			order.OrderStatus == models.OrderStatusCancelled {
			l.Info("payment_failed_duplicate", "order_id", order.ID)
			return nil
		}
		if !order.PaymentStatus.CanTransition(models.PaymentStatusFailed) ||
			!order.OrderStatus.CanTransition(models.OrderStatusCancelled) {
			l.Warn("payment_failed_ignored", "order_id", order.ID,
				"order_status", order.OrderStatus, "payment_status", order.PaymentStatus)
			return nil
		}

		if err := tx.UpdateOrderState(ctx, order.ID,
			models.OrderStatusCancelled, models.PaymentStatusFailed, nil); err != nil {
			return err
		}
		order.OrderStatus = models.OrderStatusCancelled
		order.PaymentStatus = models.PaymentStatusFailed
		applied = order
		return nil
	})
	if err != nil {
		return err
	}

	if applied != nil {
		l.Info("order_payment_failed", "order_id", applied.ID)
		r.publish(ctx, "payment_failed", applied)
	}
	return nil
}

func (r *PaymentReconciler) publish(ctx context.Context, eventType string, order *models.Order) {
	if r.Producer == nil {
		return
	}
	event := map[string]any{
		"type":           eventType,
		"order_id":       order.ID,
		"user_id":        order.UserID,
		"order_status":   order.OrderStatus,
		"payment_status": order.PaymentStatus,
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Producer.PublishEvent(pubCtx, orderEventsTopic, order.ID.String(), event); err != nil {
		logging.FromContext(ctx).Error("order_event_publish_failed", "type", eventType, "order_id", order.ID, "error", err)
	}
}
