package domain

import "time"

type WebhookEventStatus string

const (
	WebhookReceived  WebhookEventStatus = "received"
	WebhookProcessed WebhookEventStatus = "processed"
	WebhookIgnored   WebhookEventStatus = "ignored"
	WebhookStale     WebhookEventStatus = "stale"
	WebhookConflict  WebhookEventStatus = "conflict"
	WebhookFailed    WebhookEventStatus = "failed"
)

// StripeWebhookEvent is the journal row for one processor delivery.
type StripeWebhookEvent struct {
	ID                 int64              `gorm:"primaryKey" json:"id"`
	StripeEventID      string             `gorm:"uniqueIndex;not null;size:255" json:"stripe_event_id"`
	EventType          string             `gorm:"size:100;index;not null" json:"event_type"`
	PaymentIntentID    string             `gorm:"size:255;index" json:"payment_intent_id,omitempty"`
	BookingID          *int64             `gorm:"index" json:"booking_id,omitempty"`
	Status             WebhookEventStatus `gorm:"type:varchar(20);index;default:'received'" json:"status"`
	ProcessingAttempts int                `gorm:"default:0" json:"processing_attempts"`
	LastError          string             `gorm:"type:text" json:"last_error,omitempty"`
	ProcessedAt        *time.Time         `json:"processed_at,omitempty"`
	StripeCreatedAt    *time.Time         `json:"stripe_created_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (StripeWebhookEvent) TableName() string { return "stripe_webhook_events" }
