package repo

import (
	"context"

	"github.com/dmarquez/online_store/internal/models"
	"github.com/google/uuid"
)

func (r *GormRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOwnedAddress resolves an address only when it belongs to the given
// user; somebody else's address id behaves like a missing one.
func (r *GormRepo) GetOwnedAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&addr).Error
	if err != nil {
		return nil, err
	}
	return &addr, nil
}
