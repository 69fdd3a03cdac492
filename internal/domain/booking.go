package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// PaymentStatus is independent of BookingStatus. The zero value of a fresh
// booking is PaymentUnset.
type PaymentStatus string

const (
	PaymentUnset     PaymentStatus = "unset"
	PaymentSubmitted PaymentStatus = "submitted"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCanceled  PaymentStatus = "canceled"
)

// Terminal reports whether no further processor-driven transition is accepted
// for the current intent.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentConfirmed || s == PaymentFailed || s == PaymentCanceled
}

// AllowsNewIntent reports whether a new payment intent may be created.
// Only failed payments can be retried; confirmed and canceled are final.
func (s PaymentStatus) AllowsNewIntent() bool {
	return s == "" || s == PaymentUnset || s == PaymentFailed
}

// PaymentOutcome is a normalized processor result for one intent.
type PaymentOutcome string

const (
	OutcomeSucceeded PaymentOutcome = "succeeded"
	OutcomeFailed    PaymentOutcome = "failed"
	OutcomeCanceled  PaymentOutcome = "canceled"
)

// Status maps an outcome to the terminal payment status it produces.
func (o PaymentOutcome) Status() PaymentStatus {
	switch o {
	case OutcomeSucceeded:
		return PaymentConfirmed
	case OutcomeFailed:
		return PaymentFailed
	case OutcomeCanceled:
		return PaymentCanceled
	}
	return ""
}

type Booking struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	RenterID      int64           `json:"renter_id" gorm:"index;not null"`
	PropertyID    int64           `json:"property_id" gorm:"index;not null"`
	OwnerID       int64           `json:"owner_id" gorm:"index;not null"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	AdvanceAmount decimal.Decimal `json:"advance_amount" gorm:"type:numeric(12,2)"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2)"`
	Currency      string          `json:"currency" gorm:"type:varchar(3)"`
	Status        BookingStatus   `json:"status" gorm:"type:varchar(20);index;default:'pending'"`
	Message       string          `json:"message,omitempty" gorm:"type:text"`

	PaymentStatus      PaymentStatus `json:"payment_status" gorm:"type:varchar(20);index;default:'unset'"`
	PaymentIntentID    *string       `json:"payment_intent_id,omitempty" gorm:"index"`
	PaymentAmount      int64         `json:"payment_amount"`
	PaymentSubmittedAt *time.Time    `json:"payment_submitted_at,omitempty"`
	PaymentConfirmedAt *time.Time    `json:"payment_confirmed_at,omitempty"`
	PaymentFailedAt    *time.Time    `json:"payment_failed_at,omitempty"`
	PaymentCanceledAt  *time.Time    `json:"payment_canceled_at,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

// TotalMinor returns the total due in the currency's minor unit.
func (b *Booking) TotalMinor() int64 {
	return b.TotalAmount.Shift(2).Round(0).IntPart()
}

// AdvanceMinor returns the advance due in the currency's minor unit.
func (b *Booking) AdvanceMinor() int64 {
	return b.AdvanceAmount.Shift(2).Round(0).IntPart()
}

// PaymentState is the slice of a booking owned by the payment subsystem.
type PaymentState struct {
	BookingID   int64
	RenterID    int64
	OwnerID     int64
	Status      PaymentStatus
	IntentID    string
	AmountMinor int64
	SubmittedAt *time.Time
	ConfirmedAt *time.Time
	FailedAt    *time.Time
	CanceledAt  *time.Time
}

// PaymentState extracts the payment fields of the booking.
func (b *Booking) PaymentState() PaymentState {
	st := PaymentState{
		BookingID:   b.ID,
		RenterID:    b.RenterID,
		OwnerID:     b.OwnerID,
		Status:      b.PaymentStatus,
		AmountMinor: b.PaymentAmount,
		SubmittedAt: b.PaymentSubmittedAt,
		ConfirmedAt: b.PaymentConfirmedAt,
		FailedAt:    b.PaymentFailedAt,
		CanceledAt:  b.PaymentCanceledAt,
	}
	if st.Status == "" {
		st.Status = PaymentUnset
	}
	if b.PaymentIntentID != nil {
		st.IntentID = *b.PaymentIntentID
	}
	return st
}

// TimestampFor returns the status-specific timestamp of the state.
func (s PaymentState) TimestampFor(status PaymentStatus) *time.Time {
	switch status {
	case PaymentSubmitted:
		return s.SubmittedAt
	case PaymentConfirmed:
		return s.ConfirmedAt
	case PaymentFailed:
		return s.FailedAt
	case PaymentCanceled:
		return s.CanceledAt
	}
	return nil
}

// PaymentUpdate is a full write of the payment fields, applied atomically.
// Only the timestamp of Status is written; the others are left untouched.
type PaymentUpdate struct {
	Status      PaymentStatus
	IntentID    string
	AmountMinor int64
	At          time.Time
}
