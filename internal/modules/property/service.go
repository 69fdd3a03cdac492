package property

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rentals/internal/domain"
	"rentals/internal/repository"
)

type Service struct {
	repo   Repository
	notifs NotificationSender
	log    *zap.Logger
}

func NewService(repo Repository, notifs NotificationSender, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, notifs: notifs, log: log}
}

// Create stores a new listing. Every listing starts pending admin review.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreatePropertyRequest) (*domain.Property, error) {
	if !req.PricePerMonth.IsPositive() {
		return nil, ErrInvalidPrice
	}
	p := &domain.Property{
		OwnerID:       ownerID,
		Title:         req.Title,
		Description:   req.Description,
		Address:       req.Address,
		City:          req.City,
		PropertyType:  req.PropertyType,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		PricePerMonth: req.PricePerMonth.Round(2),
		Images:        nonNil(req.Images),
		Status:        domain.PropertyPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies a partial edit. An edited approved listing goes back to review.
func (s *Service) Update(ctx context.Context, ownerID, id int64, req UpdatePropertyRequest) (*domain.Property, error) {
	p, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.City != nil {
		p.City = *req.City
	}
	if req.PropertyType != nil {
		p.PropertyType = *req.PropertyType
	}
	if req.Bedrooms != nil {
		p.Bedrooms = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		p.Bathrooms = *req.Bathrooms
	}
	if req.PricePerMonth != nil {
		if !req.PricePerMonth.IsPositive() {
			return nil, ErrInvalidPrice
		}
		p.PricePerMonth = req.PricePerMonth.Round(2)
	}
	if req.Images != nil {
		p.Images = req.Images
	}

	if p.Status != domain.PropertyPending {
		p.Status = domain.PropertyPending
		p.RejectionReason = ""
		p.ReviewedBy = nil
		p.ReviewedAt = nil
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	return mapNotFound(s.repo.SoftDelete(ctx, id))
}

func (s *Service) ListMine(ctx context.Context, ownerID int64, page, limit int) (*Page, error) {
	page, limit, offset := paginate(page, limit)
	items, total, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// ListPublic returns approved listings only.
func (s *Service) ListPublic(ctx context.Context, page, limit int) (*Page, error) {
	return s.listByStatus(ctx, domain.PropertyApproved, page, limit)
}

func (s *Service) ListPending(ctx context.Context, page, limit int) (*Page, error) {
	return s.listByStatus(ctx, domain.PropertyPending, page, limit)
}

func (s *Service) listByStatus(ctx context.Context, status domain.PropertyStatus, page, limit int) (*Page, error) {
	page, limit, offset := paginate(page, limit)
	items, total, err := s.repo.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Get hides unapproved listings from everyone but their owner and admins.
func (s *Service) Get(ctx context.Context, viewerID int64, role domain.UserRole, id int64) (*domain.Property, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if p.Status != domain.PropertyApproved && p.OwnerID != viewerID && role != domain.RoleAdmin {
		return nil, ErrNotFound
	}
	return p, nil
}

// GetApproved is used by other modules that may only act on live listings.
func (s *Service) GetApproved(ctx context.Context, id int64) (*domain.Property, error) {
	return s.Get(ctx, 0, "", id)
}

func (s *Service) Approve(ctx context.Context, adminID, id int64) (*domain.Property, error) {
	return s.review(ctx, adminID, id, domain.PropertyApproved, "")
}

func (s *Service) Reject(ctx context.Context, adminID, id int64, reason string) (*domain.Property, error) {
	return s.review(ctx, adminID, id, domain.PropertyRejected, reason)
}

func (s *Service) review(ctx context.Context, adminID, id int64, status domain.PropertyStatus, reason string) (*domain.Property, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if p.Status != domain.PropertyPending {
		return nil, ErrAlreadyReview
	}
	if err := s.repo.SetReview(ctx, id, status, adminID, reason); err != nil {
		return nil, mapNotFound(err)
	}
	p.Status = status
	p.RejectionReason = reason
	s.log.Info("property reviewed", zap.Int64("property_id", id), zap.Int64("admin_id", adminID), zap.String("status", string(status)))

	typ, title, msg := domain.NotifPropertyApproved, "Listing approved", fmt.Sprintf("Your listing %q is now visible to renters.", p.Title)
	if status == domain.PropertyRejected {
		typ, title, msg = domain.NotifPropertyRejected, "Listing rejected", fmt.Sprintf("Your listing %q was rejected: %s", p.Title, reason)
	}
	if s.notifs != nil {
		if err := s.notifs.Create(ctx, p.OwnerID, typ, title, msg, map[string]any{"property_id": p.ID}); err != nil {
			s.log.Warn("property review notification failed", zap.Int64("property_id", id), zap.Error(err))
		}
	}
	return p, nil
}

func (s *Service) owned(ctx context.Context, ownerID, id int64) (*domain.Property, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if p.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return p, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func paginate(page, limit int) (int, int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
