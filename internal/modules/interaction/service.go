package interaction

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"rentals/internal/domain"
	"rentals/internal/repository"
)

type Service struct {
	favorites  FavoriteRepository
	ratings    RatingRepository
	complaints ComplaintRepository
	properties propertyReader
	notifs     NotificationSender
	log        *zap.Logger
}

func NewService(favorites FavoriteRepository, ratings RatingRepository, complaints ComplaintRepository, properties propertyReader, notifs NotificationSender, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		favorites:  favorites,
		ratings:    ratings,
		complaints: complaints,
		properties: properties,
		notifs:     notifs,
		log:        log,
	}
}

func (s *Service) AddFavorite(ctx context.Context, userID, propertyID int64) (*domain.Favorite, error) {
	if _, err := s.approvedProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	f, err := s.favorites.Add(ctx, userID, propertyID)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrAlreadyFavorite
	}
	return f, err
}

func (s *Service) RemoveFavorite(ctx context.Context, userID, propertyID int64) error {
	err := s.favorites.Remove(ctx, userID, propertyID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrFavoriteNotFound
	}
	return err
}

func (s *Service) ListFavorites(ctx context.Context, userID int64, limit, offset int) (*FavoritesPage, error) {
	items, total, err := s.favorites.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &FavoritesPage{Items: items, Total: total}, nil
}

func (s *Service) IsFavorite(ctx context.Context, userID, propertyID int64) (bool, error) {
	return s.favorites.Exists(ctx, userID, propertyID)
}

// Rate stores or replaces the caller's score. The owner hears about first ratings only.
func (s *Service) Rate(ctx context.Context, userID, propertyID int64, req RateRequest) (*domain.Rating, error) {
	p, err := s.approvedProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID == userID {
		return nil, ErrOwnProperty
	}

	rt := &domain.Rating{UserID: userID, PropertyID: propertyID, Score: req.Score, Comment: req.Comment}
	created, err := s.ratings.Upsert(ctx, rt)
	if err != nil {
		return nil, err
	}

	if created && s.notifs != nil {
		msg := fmt.Sprintf("Your listing %q received a %d star rating.", p.Title, req.Score)
		if err := s.notifs.Create(ctx, p.OwnerID, domain.NotifNewRating, "New rating", msg, map[string]any{"property_id": propertyID}); err != nil {
			s.log.Warn("rating notification failed", zap.Int64("property_id", propertyID), zap.Error(err))
		}
	}
	return rt, nil
}

func (s *Service) ListRatings(ctx context.Context, propertyID int64, limit, offset int) (*RatingsPage, error) {
	if _, err := s.approvedProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	items, total, err := s.ratings.ListByProperty(ctx, propertyID, limit, offset)
	if err != nil {
		return nil, err
	}
	avg, err := s.ratings.Average(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return &RatingsPage{Items: items, Total: total, Average: math.Round(avg*100) / 100}, nil
}

func (s *Service) FileComplaint(ctx context.Context, userID, propertyID int64, req ComplaintRequest) (*domain.Complaint, error) {
	if _, err := s.approvedProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	c := &domain.Complaint{UserID: userID, PropertyID: propertyID, Reason: req.Reason, Status: domain.ComplaintOpen}
	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("complaint filed", zap.Int64("complaint_id", c.ID), zap.Int64("property_id", propertyID))
	return c, nil
}

func (s *Service) ListComplaints(ctx context.Context, status domain.ComplaintStatus, limit, offset int) (*ComplaintsPage, error) {
	items, total, err := s.complaints.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ComplaintsPage{Items: items, Total: total}, nil
}

func (s *Service) ResolveComplaint(ctx context.Context, adminID, id int64, resolution string) error {
	err := s.complaints.Resolve(ctx, id, adminID, resolution)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrComplaintNotFound
	}
	return err
}

func (s *Service) approvedProperty(ctx context.Context, id int64) (*domain.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PropertyApproved {
		return nil, ErrPropertyNotFound
	}
	return p, nil
}
