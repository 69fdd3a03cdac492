package payment

import "time"

type CreateIntentRequest struct {
	BookingID       int64  `json:"booking_id" binding:"required,gt=0"`
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	PaymentMethodID string `json:"payment_method_id" binding:"omitempty,max=255"`
}

type CreateIntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

type ConfirmIntentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required,max=255"`
	PaymentMethodID string `json:"payment_method_id" binding:"required,max=255"`
}

type ConfirmIntentResponse struct {
	Success         bool   `json:"success"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	PaymentIntentID string `json:"payment_intent_id"`
	PaymentStatus   string `json:"payment_status"`
}

type VerifyRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required,max=255"`
}

type VerifyResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	BookingID       int64  `json:"booking_id"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PaymentStatus   string `json:"payment_status"`
}

// BookingPaymentView is the booking payment fields joined with the live
// processor status. ProcessorStatus is nil when the lookup failed or no
// intent exists.
type BookingPaymentView struct {
	BookingID          int64      `json:"booking_id"`
	PropertyID         int64      `json:"property_id"`
	BookingStatus      string     `json:"booking_status"`
	TotalAmount        string     `json:"total_amount"`
	AdvanceAmount      string     `json:"advance_amount"`
	Currency           string     `json:"currency"`
	PaymentStatus      string     `json:"payment_status"`
	PaymentIntentID    *string    `json:"payment_intent_id"`
	PaymentAmount      int64      `json:"payment_amount"`
	PaymentSubmittedAt *time.Time `json:"payment_submitted_at"`
	PaymentConfirmedAt *time.Time `json:"payment_confirmed_at"`
	PaymentFailedAt    *time.Time `json:"payment_failed_at"`
	PaymentCanceledAt  *time.Time `json:"payment_canceled_at"`
	ProcessorStatus    *string    `json:"processor_status"`
}

type WebhookResult struct {
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Action    string `json:"action"`
	BookingID int64  `json:"booking_id,omitempty"`
}
