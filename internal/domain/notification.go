package domain

import "time"

type NotificationType string

const (
	NotifBookingCreated   NotificationType = "booking_created"
	NotifBookingApproved  NotificationType = "booking_approved"
	NotifBookingRejected  NotificationType = "booking_rejected"
	NotifBookingCancelled NotificationType = "booking_cancelled"
	NotifPropertyApproved NotificationType = "property_approved"
	NotifPropertyRejected NotificationType = "property_rejected"
	NotifNewRating        NotificationType = "new_rating"
	NotifPaymentConfirmed NotificationType = "payment_confirmed"
	NotifPaymentFailed    NotificationType = "payment_failed"
	NotifPaymentCanceled  NotificationType = "payment_canceled"
)

type Notification struct {
	ID        int64            `json:"id" gorm:"primaryKey"`
	UserID    int64            `json:"user_id" gorm:"index;not null"`
	Type      NotificationType `json:"type" gorm:"type:varchar(40);index"`
	Title     string           `json:"title"`
	Message   string           `json:"message,omitempty" gorm:"type:text"`
	IsRead    bool             `json:"is_read" gorm:"default:false"`
	Data      map[string]any   `json:"data,omitempty" gorm:"serializer:json"`
	CreatedAt time.Time        `json:"created_at"`
}
