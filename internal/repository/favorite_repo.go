package repository

import (
	"context"

	"rentals/internal/domain"

	"gorm.io/gorm"
)

type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add returns ErrDuplicate if the property is already a favorite.
func (r *FavoriteRepository) Add(ctx context.Context, userID, propertyID int64) (*domain.Favorite, error) {
	f := &domain.Favorite{UserID: userID, PropertyID: propertyID}
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, propertyID int64) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Delete(&domain.Favorite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Favorite, int64, error) {
	limit, offset = normalizePage(limit, offset)

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Favorite{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Favorite
	err := r.db.WithContext(ctx).
		Preload("Property").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *FavoriteRepository) Exists(ctx context.Context, userID, propertyID int64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&domain.Favorite{}).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Count(&cnt).Error
	return cnt > 0, err
}
