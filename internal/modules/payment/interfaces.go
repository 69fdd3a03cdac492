package payment

import (
	"context"

	"rentals/internal/domain"
	"rentals/internal/pkg/gateway"
)

// PaymentStore is the storage port of the state machine. Implementations
// must apply CompareAndSetPayment as one conditional single-row update.
type PaymentStore interface {
	GetPaymentState(ctx context.Context, bookingID int64) (domain.PaymentState, error)
	CompareAndSetPayment(ctx context.Context, expected domain.PaymentState, next domain.PaymentUpdate) (bool, error)
}

type bookingReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Booking, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Gateway interface {
	CreateIntent(ctx context.Context, p gateway.CreateIntentParams) (*gateway.Intent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*gateway.Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*gateway.Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
}

// Notifier is a fire-and-forget user notification sink.
type Notifier interface {
	Create(ctx context.Context, userID int64, typ domain.NotificationType, title, message string, data map[string]any) error
}

// Journal records webhook deliveries for operations and the duplicate fast path.
type Journal interface {
	Record(ctx context.Context, ev *domain.StripeWebhookEvent) (*domain.StripeWebhookEvent, error)
	MarkOutcome(ctx context.Context, eventID string, status domain.WebhookEventStatus, lastErr string) error
}
