package interaction

import (
	"context"

	"rentals/internal/domain"
)

type FavoriteRepository interface {
	Add(ctx context.Context, userID, propertyID int64) (*domain.Favorite, error)
	Remove(ctx context.Context, userID, propertyID int64) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Favorite, int64, error)
	Exists(ctx context.Context, userID, propertyID int64) (bool, error)
}

type RatingRepository interface {
	Upsert(ctx context.Context, rt *domain.Rating) (bool, error)
	ListByProperty(ctx context.Context, propertyID int64, limit, offset int) ([]domain.Rating, int64, error)
	Average(ctx context.Context, propertyID int64) (float64, error)
}

type ComplaintRepository interface {
	Create(ctx context.Context, c *domain.Complaint) error
	ListByStatus(ctx context.Context, status domain.ComplaintStatus, limit, offset int) ([]domain.Complaint, int64, error)
	Resolve(ctx context.Context, id, adminID int64, resolution string) error
}

type propertyReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Property, error)
}

type NotificationSender interface {
	Create(ctx context.Context, userID int64, typ domain.NotificationType, title, message string, data map[string]any) error
}
