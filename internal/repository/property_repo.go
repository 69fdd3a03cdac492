package repository

import (
	"context"
	"time"

	"rentals/internal/domain"

	"gorm.io/gorm"
)

type PropertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PropertyRepository) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	var p domain.Property
	if err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PropertyRepository) Update(ctx context.Context, p *domain.Property) error {
	return translate(r.db.WithContext(ctx).Save(p).Error)
}

func (r *PropertyRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Property{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PropertyRepository) ListByStatus(ctx context.Context, status domain.PropertyStatus, limit, offset int) ([]domain.Property, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("status = ? AND deleted_at IS NULL", status), limit, offset)
}

func (r *PropertyRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Property, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("owner_id = ? AND deleted_at IS NULL", ownerID), limit, offset)
}

func (r *PropertyRepository) list(ctx context.Context, q *gorm.DB, limit, offset int) ([]domain.Property, int64, error) {
	limit, offset = normalizePage(limit, offset)

	var total int64
	if err := q.Session(&gorm.Session{}).Model(&domain.Property{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Property
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SetReview records an admin decision on a listing.
func (r *PropertyRepository) SetReview(ctx context.Context, id int64, status domain.PropertyStatus, reviewerID int64, reason string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Property{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"status":           status,
			"rejection_reason": reason,
			"reviewed_by":      reviewerID,
			"reviewed_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
