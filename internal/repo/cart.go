package repo

import (
	"context"

	"github.com/dmarquez/online_store/internal/models"
	"github.com/google/uuid"
)

// GetCartByUser returns the user's cart with items and their products
// resolved. The read is a snapshot: stock and price are re-checked
// inside the order transaction before anything is committed.
func (r *GormRepo) GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ClearCart removes all items and resets the total. The cart row itself
// stays, ready for the next purchase.
func (r *GormRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	tx := r.DB.WithContext(ctx)
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Model(&models.Cart{}).Where("id = ?", cartID).Update("total_cents", 0).Error
}

func (r *GormRepo) CountCartItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.CartItem{}).Where("cart_id = ?", cartID).Count(&n).Error
	return n, err
}

// RefreshCartTotal recomputes the derived total from current product
// prices and persists it.
func (r *GormRepo) RefreshCartTotal(ctx context.Context, cart *models.Cart) error {
	var total int64
	for i := range cart.Items {
		total += cart.Items[i].Product.PriceCents * int64(cart.Items[i].Quantity)
	}
	cart.TotalCents = total
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		Update("total_cents", total).Error
}
