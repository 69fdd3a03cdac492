package repository

import (
	"context"
	"time"

	"rentals/internal/domain"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if b.PaymentStatus == "" {
		b.PaymentStatus = domain.PaymentUnset
	}
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *BookingRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID int64, limit, offset int) ([]domain.Booking, int64, error) {
	return r.list(ctx, "renter_id = ?", renterID, limit, offset)
}

func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Booking, int64, error) {
	return r.list(ctx, "owner_id = ?", ownerID, limit, offset)
}

func (r *BookingRepository) list(ctx context.Context, where string, id int64, limit, offset int) ([]domain.Booking, int64, error) {
	limit, offset = normalizePage(limit, offset)

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Booking{}).Where(where, id).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Property").
		Where(where, id).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateStatus moves the booking lifecycle status only if it is currently
// one of from. Payment columns are never touched here.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from []domain.BookingStatus, to domain.BookingStatus) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if to == domain.BookingCancelled {
		updates["cancelled_at"] = time.Now().UTC()
	}

	res := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BookingRepository) GetPaymentState(ctx context.Context, bookingID int64) (domain.PaymentState, error) {
	b, err := r.GetByID(ctx, bookingID)
	if err != nil {
		return domain.PaymentState{}, err
	}
	return b.PaymentState(), nil
}

// CompareAndSetPayment writes next only if the stored payment status and
// intent reference still equal expected. All payment columns change in one
// UPDATE, so concurrent writers on the same booking cannot interleave.
func (r *BookingRepository) CompareAndSetPayment(ctx context.Context, expected domain.PaymentState, next domain.PaymentUpdate) (bool, error) {
	at := next.At.UTC()
	updates := map[string]interface{}{
		"payment_status":    next.Status,
		"payment_intent_id": next.IntentID,
		"payment_amount":    next.AmountMinor,
		"updated_at":        time.Now().UTC(),
	}
	if col := paymentTimestampColumn(next.Status); col != "" {
		updates[col] = at
	}

	q := r.db.WithContext(ctx).Model(&domain.Booking{}).Where("id = ?", expected.BookingID)
	if expected.Status == domain.PaymentUnset {
		q = q.Where("(payment_status = ? OR payment_status = '' OR payment_status IS NULL)", domain.PaymentUnset)
	} else {
		q = q.Where("payment_status = ?", expected.Status)
	}
	if expected.IntentID == "" {
		q = q.Where("(payment_intent_id IS NULL OR payment_intent_id = '')")
	} else {
		q = q.Where("payment_intent_id = ?", expected.IntentID)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func paymentTimestampColumn(s domain.PaymentStatus) string {
	switch s {
	case domain.PaymentSubmitted:
		return "payment_submitted_at"
	case domain.PaymentConfirmed:
		return "payment_confirmed_at"
	case domain.PaymentFailed:
		return "payment_failed_at"
	case domain.PaymentCanceled:
		return "payment_canceled_at"
	}
	return ""
}

// HasApprovedOverlap reports whether an approved booking of the property
// overlaps [start, end). excludeID skips the booking being checked.
func (r *BookingRepository) HasApprovedOverlap(ctx context.Context, propertyID int64, start, end time.Time, excludeID int64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("property_id = ? AND status = ? AND id <> ?", propertyID, domain.BookingApproved, excludeID).
		Where("start_date < ? AND end_date > ?", end, start).
		Count(&cnt).Error
	return cnt > 0, err
}
