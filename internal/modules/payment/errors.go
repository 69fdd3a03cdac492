package payment

import "errors"

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrPaymentNotAllowed  = errors.New("payment not allowed for booking")
	ErrAmountExceedsTotal = errors.New("amount exceeds booking total")
	ErrPaymentConflict    = errors.New("another payment attempt was recorded first")
	ErrSignatureInvalid   = errors.New("webhook signature invalid")
	// ErrConcurrentUpdate is transient; the caller should retry.
	ErrConcurrentUpdate = errors.New("booking payment changed concurrently")
)
