package repo

import (
	"context"

	"github.com/dmarquez/online_store/internal/models"
	"github.com/google/uuid"
)

// FindProductForUpdate reads a product with a row lock so that the
// check-then-decrement on stock is atomic across concurrent checkouts.
func (r *GormRepo) FindProductForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := forUpdate(r.DB.WithContext(ctx)).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SetProductStock writes the new stock figure. Callers must hold the
// row lock taken by FindProductForUpdate in the same transaction.
func (r *GormRepo) SetProductStock(ctx context.Context, id uuid.UUID, newStock int) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", newStock).Error
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
