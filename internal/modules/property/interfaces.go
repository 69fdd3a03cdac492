package property

import (
	"context"

	"rentals/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, p *domain.Property) error
	GetByID(ctx context.Context, id int64) (*domain.Property, error)
	Update(ctx context.Context, p *domain.Property) error
	SoftDelete(ctx context.Context, id int64) error
	ListByStatus(ctx context.Context, status domain.PropertyStatus, limit, offset int) ([]domain.Property, int64, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Property, int64, error)
	SetReview(ctx context.Context, id int64, status domain.PropertyStatus, reviewerID int64, reason string) error
}

type NotificationSender interface {
	Create(ctx context.Context, userID int64, typ domain.NotificationType, title, message string, data map[string]any) error
}
