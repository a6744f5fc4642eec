package repo

import (
	"context"

	"github.com/dmarquez/online_store/internal/models"
	"github.com/google/uuid"
)

// CreateOrder persists the order together with its items and the frozen
// shipping address copy (gorm cascades the associations).
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items.Product").
		Preload("ShippingAddress").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUpdate locks the order row for a reconciler transition.
// Associations are not loaded; transitions touch only status columns.
func (r *GormRepo) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := forUpdate(r.DB.WithContext(ctx)).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByTransactionForUpdate locates an order by the provider's
// payment intent id, locking the row. Point lookups here are why
// transaction_id carries an index.
func (r *GormRepo) GetOrderByTransactionForUpdate(ctx context.Context, transactionID string) (*models.Order, error) {
	var order models.Order
	err := forUpdate(r.DB.WithContext(ctx)).
		Where("transaction_id = ?", transactionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items.Product").
		Preload("ShippingAddress").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SetOrderTransactionID records the provider's payment reference as
// soon as it is known, so failure events can be correlated even before
// any completion event lands.
func (r *GormRepo) SetOrderTransactionID(ctx context.Context, id uuid.UUID, transactionID string) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("transaction_id", transactionID).Error
}

// UpdateOrderState applies a status transition. transactionID is only
// written when non-nil so a later event can never blank it out.
func (r *GormRepo) UpdateOrderState(ctx context.Context, id uuid.UUID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus, transactionID *string) error {
	updates := map[string]any{
		"order_status":   orderStatus,
		"payment_status": paymentStatus,
	}
	if transactionID != nil {
		updates["transaction_id"] = *transactionID
	}
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}
