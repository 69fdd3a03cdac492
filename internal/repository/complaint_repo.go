package repository

import (
	"context"
	"time"

	"rentals/internal/domain"

	"gorm.io/gorm"
)

type ComplaintRepository struct {
	db *gorm.DB
}

func NewComplaintRepository(db *gorm.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

func (r *ComplaintRepository) Create(ctx context.Context, c *domain.Complaint) error {
	if c.Status == "" {
		c.Status = domain.ComplaintOpen
	}
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *ComplaintRepository) ListByStatus(ctx context.Context, status domain.ComplaintStatus, limit, offset int) ([]domain.Complaint, int64, error) {
	limit, offset = normalizePage(limit, offset)

	q := r.db.WithContext(ctx).Model(&domain.Complaint{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Complaint
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Resolve closes an open complaint. Resolving twice returns ErrNotFound.
func (r *ComplaintRepository) Resolve(ctx context.Context, id, adminID int64, resolution string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Complaint{}).
		Where("id = ? AND status = ?", id, domain.ComplaintOpen).
		Updates(map[string]interface{}{
			"status":      domain.ComplaintResolved,
			"resolution":  resolution,
			"resolved_by": adminID,
			"resolved_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
