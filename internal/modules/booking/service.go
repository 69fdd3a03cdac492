package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rentals/internal/domain"
	"rentals/internal/repository"
)

// maxLeaseMonths bounds a single booking.
const maxLeaseMonths = 60

type Service struct {
	bookings   BookingRepository
	properties PropertyReader
	notifs     NotificationSender
	currency   string
	now        func() time.Time
	log        *zap.Logger
}

func NewService(bookings BookingRepository, properties PropertyReader, notifs NotificationSender, currency string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		bookings:   bookings,
		properties: properties,
		notifs:     notifs,
		currency:   strings.ToLower(currency),
		now:        time.Now,
		log:        log,
	}
}

// CreateBooking prices the lease by started month and charges the first
// month as the advance. Payment starts unset.
func (s *Service) CreateBooking(ctx context.Context, renterID int64, req CreateBookingRequest) (*domain.Booking, error) {
	start, end := day(req.StartDate), day(req.EndDate)
	if !end.After(start) || start.Before(day(s.now())) {
		return nil, ErrValidation
	}
	months := leaseMonths(start, end)
	if months > maxLeaseMonths {
		return nil, ErrValidation
	}

	p, err := s.properties.GetByID(ctx, req.PropertyID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && p.Status != domain.PropertyApproved) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.OwnerID == renterID {
		return nil, ErrOwnProperty
	}

	taken, err := s.bookings.HasApprovedOverlap(ctx, p.ID, start, end, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNotAvailable
	}

	b := &domain.Booking{
		RenterID:      renterID,
		PropertyID:    p.ID,
		OwnerID:       p.OwnerID,
		StartDate:     start,
		EndDate:       end,
		TotalAmount:   p.PricePerMonth.Mul(decimal.NewFromInt(int64(months))).Round(2),
		AdvanceAmount: p.PricePerMonth.Round(2),
		Currency:      s.currency,
		Status:        domain.BookingPending,
		Message:       req.Message,
		PaymentStatus: domain.PaymentUnset,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.Int64("booking_id", b.ID),
		zap.Int64("property_id", p.ID),
		zap.Int("months", months),
		zap.String("total", b.TotalAmount.StringFixed(2)),
	)
	s.notify(ctx, b.OwnerID, domain.NotifBookingCreated, "New booking request",
		fmt.Sprintf("%q was requested from %s to %s.", p.Title, start.Format(time.DateOnly), end.Format(time.DateOnly)), b.ID)
	return b, nil
}

// GetBooking is visible to the renter and the owner only.
func (s *Service) GetBooking(ctx context.Context, userID, id int64) (*domain.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.RenterID != userID && b.OwnerID != userID {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *Service) ListMine(ctx context.Context, renterID int64, limit, offset int) (*BookingsPage, error) {
	items, total, err := s.bookings.ListByRenter(ctx, renterID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &BookingsPage{Items: items, Total: total}, nil
}

func (s *Service) ListIncoming(ctx context.Context, ownerID int64, limit, offset int) (*BookingsPage, error) {
	items, total, err := s.bookings.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &BookingsPage{Items: items, Total: total}, nil
}

func (s *Service) Approve(ctx context.Context, ownerID, id int64) (*domain.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	taken, err := s.bookings.HasApprovedOverlap(ctx, b.PropertyID, b.StartDate, b.EndDate, b.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNotAvailable
	}
	return s.transition(ctx, b, []domain.BookingStatus{domain.BookingPending}, domain.BookingApproved)
}

func (s *Service) Reject(ctx context.Context, ownerID, id int64) (*domain.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return s.transition(ctx, b, []domain.BookingStatus{domain.BookingPending}, domain.BookingRejected)
}

// Cancel is the renter's exit. Payment columns are left to the payment flow.
func (s *Service) Cancel(ctx context.Context, renterID, id int64) (*domain.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.RenterID != renterID {
		return nil, ErrForbidden
	}
	return s.transition(ctx, b, []domain.BookingStatus{domain.BookingPending, domain.BookingApproved}, domain.BookingCancelled)
}

func (s *Service) transition(ctx context.Context, b *domain.Booking, from []domain.BookingStatus, to domain.BookingStatus) (*domain.Booking, error) {
	ok, err := s.bookings.UpdateStatus(ctx, b.ID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStatus
	}
	s.log.Info("booking status changed",
		zap.Int64("booking_id", b.ID),
		zap.String("from", string(b.Status)),
		zap.String("to", string(to)),
	)
	b.Status = to

	switch to {
	case domain.BookingApproved:
		s.notify(ctx, b.RenterID, domain.NotifBookingApproved, "Booking approved",
			"Your booking was approved. You can now pay the advance.", b.ID)
	case domain.BookingRejected:
		s.notify(ctx, b.RenterID, domain.NotifBookingRejected, "Booking rejected",
			"The owner declined your booking request.", b.ID)
	case domain.BookingCancelled:
		s.notify(ctx, b.OwnerID, domain.NotifBookingCancelled, "Booking cancelled",
			"The renter cancelled the booking.", b.ID)
	}
	return b, nil
}

func (s *Service) load(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *Service) notify(ctx context.Context, userID int64, typ domain.NotificationType, title, msg string, bookingID int64) {
	if s.notifs == nil {
		return
	}
	if err := s.notifs.Create(ctx, userID, typ, title, msg, map[string]any{"booking_id": bookingID}); err != nil {
		s.log.Warn("booking notification failed", zap.Int64("booking_id", bookingID), zap.Error(err))
	}
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// leaseMonths counts started months between start and end.
func leaseMonths(start, end time.Time) int {
	n := 1
	for n <= maxLeaseMonths && start.AddDate(0, n, 0).Before(end) {
		n++
	}
	return n
}
