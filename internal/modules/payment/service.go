package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rentals/internal/domain"
	"rentals/internal/pkg/gateway"
	"rentals/internal/repository"
)

type Service struct {
	bookings bookingReader
	users    userReader
	gateway  Gateway
	machine  *StateMachine
	currency string
	log      *zap.Logger
	now      func() time.Time
}

func NewService(bookings bookingReader, users userReader, gw Gateway, machine *StateMachine, currency string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		bookings: bookings,
		users:    users,
		gateway:  gw,
		machine:  machine,
		currency: strings.ToLower(currency),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreatePaymentIntent opens a processor intent for the caller's booking and
// records it as the booking's current attempt.
func (s *Service) CreatePaymentIntent(ctx context.Context, userID int64, req CreateIntentRequest) (*CreateIntentResponse, error) {
	b, err := s.ownBooking(ctx, userID, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == domain.BookingRejected || b.Status == domain.BookingCancelled {
		return nil, ErrPaymentNotAllowed
	}
	st := b.PaymentState()
	if !st.Status.AllowsNewIntent() {
		return nil, ErrPaymentNotAllowed
	}
	if req.Amount > b.TotalMinor() {
		return nil, ErrAmountExceedsTotal
	}

	currency := b.Currency
	if currency == "" {
		currency = s.currency
	}

	var email string
	if u, err := s.users.GetByID(ctx, userID); err == nil {
		email = u.Email
	} else {
		s.log.Warn("payer lookup failed, creating intent without receipt email",
			zap.Int64("user_id", userID), zap.Error(err))
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.CreateIntentParams{
		AmountMinor:     req.Amount,
		Currency:        currency,
		BookingID:       b.ID,
		PayerEmail:      email,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		return nil, err
	}

	ok, err := s.machine.RecordSubmitted(ctx, st, intent.ID, req.Amount, s.now())
	if err != nil {
		s.abandonUnlessTracked(b.ID, intent.ID)
		return nil, err
	}
	if !ok {
		s.log.Warn("payment intent lost creation race",
			zap.Int64("booking_id", b.ID), zap.String("payment_intent_id", intent.ID))
		s.abandon(intent.ID)
		return nil, ErrPaymentConflict
	}

	return &CreateIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          intent.AmountMinor,
		Currency:        currency,
		Status:          intent.Status,
	}, nil
}

// abandonUnlessTracked handles a bookkeeping write with an unknown result.
// The write may have committed, so the intent is cancelled only when the
// booking is known to track a different attempt.
func (s *Service) abandonUnlessTracked(bookingID int64, intentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tracked, err := s.machine.Tracks(ctx, bookingID, intentID)
	if err != nil {
		s.log.Warn("payment intent left open, booking state unknown",
			zap.Int64("booking_id", bookingID), zap.String("payment_intent_id", intentID), zap.Error(err))
		return
	}
	if tracked {
		s.log.Warn("payment intent recorded despite write error",
			zap.Int64("booking_id", bookingID), zap.String("payment_intent_id", intentID))
		return
	}
	s.abandon(intentID)
}

// abandon cancels an upstream intent that is not tracked by any booking.
func (s *Service) abandon(intentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.gateway.CancelIntent(ctx, intentID); err != nil {
		s.log.Warn("abandoned payment intent cancel failed",
			zap.String("payment_intent_id", intentID), zap.Error(err))
	}
}

// ConfirmPaymentIntent confirms synchronously and feeds a settled result
// through the same state machine the webhook uses.
func (s *Service) ConfirmPaymentIntent(ctx context.Context, userID int64, req ConfirmIntentRequest) (*ConfirmIntentResponse, error) {
	current, err := s.gateway.RetrieveIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	b, err := s.ownBooking(ctx, userID, current.BookingID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.ConfirmIntent(ctx, req.PaymentIntentID, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	resp := &ConfirmIntentResponse{
		Success:         intent.Succeeded(),
		Status:          intent.Status,
		Amount:          intent.AmountMinor,
		PaymentIntentID: intent.ID,
		PaymentStatus:   string(b.PaymentState().Status),
	}

	outcome, settled := outcomeForIntent(intent)
	if !settled {
		return resp, nil
	}
	result, err := s.machine.ApplyOutcome(ctx, OutcomeEvent{
		BookingID:   b.ID,
		IntentID:    intent.ID,
		Outcome:     outcome,
		AmountMinor: intent.AmountMinor,
		At:          s.now(),
		Source:      SourceConfirm,
		Currency:    intent.Currency,
	})
	if err != nil {
		return nil, err
	}
	resp.PaymentStatus = string(result.State.Status)
	return resp, nil
}

func outcomeForIntent(in *gateway.Intent) (domain.PaymentOutcome, bool) {
	switch {
	case in.Succeeded():
		return domain.OutcomeSucceeded, true
	case in.Canceled():
		return domain.OutcomeCanceled, true
	case in.Declined:
		return domain.OutcomeFailed, true
	}
	return "", false
}

// VerifyPayment reports the processor's view of an intent. It never writes.
func (s *Service) VerifyPayment(ctx context.Context, userID int64, intentID string) (*VerifyResponse, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	b, err := s.partyBooking(ctx, userID, intent.BookingID)
	if err != nil {
		return nil, err
	}
	return &VerifyResponse{
		PaymentIntentID: intent.ID,
		BookingID:       b.ID,
		Status:          intent.Status,
		Amount:          intent.AmountMinor,
		Currency:        intent.Currency,
		PaymentStatus:   string(b.PaymentState().Status),
	}, nil
}

func (s *Service) GetConfirmation(ctx context.Context, userID int64, intentID string) (*BookingPaymentView, error) {
	b, err := s.bookings.GetByPaymentIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if !isParty(b, userID) {
		return nil, ErrBookingNotFound
	}
	return s.view(ctx, b), nil
}

func (s *Service) GetBookingPaymentStatus(ctx context.Context, userID, bookingID int64) (*BookingPaymentView, error) {
	b, err := s.partyBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, b), nil
}

// view joins the stored payment fields with the live processor status. A
// failed lookup leaves ProcessorStatus nil.
func (s *Service) view(ctx context.Context, b *domain.Booking) *BookingPaymentView {
	st := b.PaymentState()
	v := &BookingPaymentView{
		BookingID:          b.ID,
		PropertyID:         b.PropertyID,
		BookingStatus:      string(b.Status),
		TotalAmount:        b.TotalAmount.StringFixed(2),
		AdvanceAmount:      b.AdvanceAmount.StringFixed(2),
		Currency:           b.Currency,
		PaymentStatus:      string(st.Status),
		PaymentIntentID:    b.PaymentIntentID,
		PaymentAmount:      st.AmountMinor,
		PaymentSubmittedAt: st.SubmittedAt,
		PaymentConfirmedAt: st.ConfirmedAt,
		PaymentFailedAt:    st.FailedAt,
		PaymentCanceledAt:  st.CanceledAt,
	}
	if st.IntentID == "" {
		return v
	}
	intent, err := s.gateway.RetrieveIntent(ctx, st.IntentID)
	if err != nil {
		s.log.Warn("live payment status unavailable",
			zap.Int64("booking_id", b.ID), zap.String("payment_intent_id", st.IntentID), zap.Error(err))
		return v
	}
	status := intent.Status
	v.ProcessorStatus = &status
	return v
}

// ownBooking loads a booking the caller pays for. Missing and foreign
// bookings are indistinguishable to the caller.
func (s *Service) ownBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RenterID != userID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (s *Service) partyBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isParty(b, userID) {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (s *Service) loadBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	if bookingID <= 0 {
		return nil, ErrBookingNotFound
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return b, nil
}

func isParty(b *domain.Booking, userID int64) bool {
	return b.RenterID == userID || b.OwnerID == userID
}

func currencyCode(c string) string {
	return strings.ToUpper(c)
}
