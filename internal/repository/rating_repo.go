package repository

import (
	"context"
	"time"

	"rentals/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert stores the user's rating for a property, replacing an earlier one.
// created reports whether this is the user's first rating of the property.
func (r *RatingRepository) Upsert(ctx context.Context, rt *domain.Rating) (created bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&domain.Rating{}).
			Where("user_id = ? AND property_id = ?", rt.UserID, rt.PropertyID).
			Count(&cnt).Error; err != nil {
			return err
		}
		created = cnt == 0

		rt.UpdatedAt = time.Now().UTC()
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "property_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
		}).Create(rt).Error
	})
	return created, translate(err)
}

func (r *RatingRepository) ListByProperty(ctx context.Context, propertyID int64, limit, offset int) ([]domain.Rating, int64, error) {
	limit, offset = normalizePage(limit, offset)

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Rating{}).Where("property_id = ?", propertyID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Rating
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *RatingRepository) Average(ctx context.Context, propertyID int64) (float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).
		Model(&domain.Rating{}).
		Select("AVG(score)").
		Where("property_id = ?", propertyID).
		Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}
