package repository

import (
	"context"
	"time"

	"rentals/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEventRepository is the journal of processor deliveries. It records
// what happened to each event id; booking state never depends on it.
type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record inserts the event once and bumps the attempt counter on every
// delivery. It returns the stored row.
func (r *WebhookEventRepository) Record(ctx context.Context, ev *domain.StripeWebhookEvent) (*domain.StripeWebhookEvent, error) {
	if ev.Status == "" {
		ev.Status = domain.WebhookReceived
	}

	var stored domain.StripeWebhookEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ev).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.StripeWebhookEvent{}).
			Where("stripe_event_id = ?", ev.StripeEventID).
			Update("processing_attempts", gorm.Expr("processing_attempts + 1")).Error; err != nil {
			return err
		}
		return tx.Where("stripe_event_id = ?", ev.StripeEventID).First(&stored).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

// MarkOutcome stores the final disposition of a delivery.
func (r *WebhookEventRepository) MarkOutcome(ctx context.Context, eventID string, status domain.WebhookEventStatus, lastErr string) error {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastErr,
		"updated_at": time.Now().UTC(),
	}
	if status != domain.WebhookFailed {
		updates["processed_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&domain.StripeWebhookEvent{}).
		Where("stripe_event_id = ?", eventID).
		Updates(updates).Error
}

// PruneSettled deletes journal rows that reached a final disposition before
// the cutoff. Failed and received rows are kept for investigation.
func (r *WebhookEventRepository) PruneSettled(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []domain.WebhookEventStatus{
			domain.WebhookProcessed,
			domain.WebhookIgnored,
			domain.WebhookStale,
			domain.WebhookConflict,
		}, before).
		Delete(&domain.StripeWebhookEvent{})
	return res.RowsAffected, res.Error
}
