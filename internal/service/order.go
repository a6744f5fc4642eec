package service

import (
	"context"
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

const orderEventsTopic = "order_events"

// CheckoutGateway creates hosted payment sessions with the external
// provider. Satisfied by *stripe.Client.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, orderID uuid.UUID, lines []stripe.LineItem) (*stripe.CheckoutSession, error)
}

// EventPublisher pushes domain events to the broker. Satisfied by
// *mykafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type OrderService struct {
	Repo     *repo.GormRepo
	Gateway  CheckoutGateway
	Producer EventPublisher
	Pricing  Pricing
}

// CreateOrder converts the user's cart into an immutable order inside
// one transaction: re-validate stock against freshly locked product
// rows, persist the order (id first, it is the payment correlation
// key), open the provider session, apply the staged stock decrements,
// clear the cart. Any failure rolls the whole thing back, so a gateway
// outage never leaves stock decremented or a dangling pending order.
func (s *OrderService) CreateOrder(ctx context.Context, userID, addressID uuid.UUID) (*models.Order, *stripe.CheckoutSession, error) {
	var (
		orderID uuid.UUID
		session *stripe.CheckoutSession
	)

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.GetCartByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: cannot create an order from an empty cart", ErrValidation)
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return fmt.Errorf("%w: cannot create an order from an empty cart", ErrValidation)
		}

		if _, err := tx.GetUser(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %s", ErrNotFound, userID)
			}
			return err
		}

		addr, err := tx.GetOwnedAddress(ctx, userID, addressID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: address %s", ErrNotFound, addressID)
		}
		if err != nil {
			return err
		}

		type stagedDecrement struct {
			productID uuid.UUID
			newStock  int
		}

		var (
			subtotal   int64
			items      = make([]models.OrderItem, 0, len(cart.Items))
			lines      = make([]stripe.LineItem, 0, len(cart.Items))
			decrements = make([]stagedDecrement, 0, len(cart.Items))
		)

		for i := range cart.Items {
			ci := &cart.Items[i]

			// The cart snapshot may be stale; the locked re-read is
			// what the totals and the stock check are based on.
			product, err := tx.FindProductForUpdate(ctx, ci.ProductID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %s", ErrNotFound, ci.ProductID)
			}
			if err != nil {
				return err
			}
			if !product.Active {
				return fmt.Errorf("%w: product %s", ErrNotFound, ci.ProductID)
			}
			if product.Stock < int(ci.Quantity) {
				return &InsufficientStockError{
					ProductID: product.ID,
					Name:      product.Name,
					Available: product.Stock,
					Requested: ci.Quantity,
				}
			}

			subtotal += product.PriceCents * int64(ci.Quantity)
			items = append(items, models.OrderItem{
				ProductID:      product.ID,
				Quantity:       ci.Quantity,
				UnitPriceCents: product.PriceCents,
			})
			lines = append(lines, stripe.LineItem{
				Name:           product.Name,
				UnitPriceCents: product.PriceCents,
				Quantity:       ci.Quantity,
			})
			decrements = append(decrements, stagedDecrement{
				productID: product.ID,
				newStock:  product.Stock - int(ci.Quantity),
			})
		}

		shipping := s.Pricing.Shipping(subtotal)
		tax := s.Pricing.Tax(subtotal)

		order := &models.Order{
			UserID:        userID,
			CreatedAt:     time.Now().UTC(),
			SubtotalCents: subtotal,
			ShippingCents: shipping,
			TaxCents:      tax,
			TotalCents:    subtotal + shipping + tax,
			OrderStatus:   models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusPending,
			PaymentMethod: "credit_card",
			ShippingAddress: models.OrderAddress{
				FirstName:   addr.FirstName,
				LastName:    addr.LastName,
				Street:      addr.Street,
				City:        addr.City,
				State:       addr.State,
				Country:     addr.Country,
				ZipCode:     addr.ZipCode,
				PhoneNumber: addr.PhoneNumber,
			},
			Items: items,
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		orderID = order.ID

		sess, err := s.Gateway.CreateCheckoutSession(ctx, order.ID, lines)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrGateway, err)
		}
		session = sess

		// The provider may hand back the payment intent right away;
		// recording it lets failure webhooks correlate before any
		// completion event arrives.
		if sess.PaymentIntent != "" {
			if err := tx.SetOrderTransactionID(ctx, order.ID, sess.PaymentIntent); err != nil {
				return err
			}
		}

		for _, d := range decrements {
			if err := tx.SetProductStock(ctx, d.productID, d.newStock); err != nil {
				return err
			}
		}

		return tx.ClearCart(ctx, cart.ID)
	})
	if err != nil {
		return nil, nil, err
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, "order_created", order)
	return order, session, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	// Another user's order looks like a missing one.
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.Repo.ListOrdersByUser(ctx, userID)
}

// GetCart exposes the cart snapshot with its derived total for the
// presentation layer.
func (s *OrderService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.GetCartByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: cart for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RefreshCartTotal(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	if s.Producer == nil {
		return
	}
	event := map[string]any{
		"type":           eventType,
		"order_id":       order.ID,
		"user_id":        order.UserID,
		"total_cents":    order.TotalCents,
		"order_status":   order.OrderStatus,
		"payment_status": order.PaymentStatus,
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, orderEventsTopic, order.ID.String(), event); err != nil {
		logging.FromContext(ctx).Error("order_event_publish_failed", "type", eventType, "order_id", order.ID, "error", err)
	}
}
