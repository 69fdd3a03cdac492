package booking

import (
	"context"
	"time"

	"rentals/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByRenter(ctx context.Context, renterID int64, limit, offset int) ([]domain.Booking, int64, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Booking, int64, error)
	UpdateStatus(ctx context.Context, id int64, from []domain.BookingStatus, to domain.BookingStatus) (bool, error)
	HasApprovedOverlap(ctx context.Context, propertyID int64, start, end time.Time, excludeID int64) (bool, error)
}

type PropertyReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Property, error)
}

type NotificationSender interface {
	Create(ctx context.Context, userID int64, typ domain.NotificationType, title, message string, data map[string]any) error
}
