package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rentals/internal/domain"
	"rentals/internal/pkg/events"
)

type DecisionKind string

const (
	DecisionApply     DecisionKind = "apply"
	DecisionDuplicate DecisionKind = "duplicate"
	DecisionStale     DecisionKind = "stale"
	DecisionConflict  DecisionKind = "conflict"
)

const (
	SourceWebhook = "webhook"
	SourceConfirm = "confirm"

	maxCASAttempts = 3
)

// Decide is the transition function. It never looks at anything but the
// stored state and the incoming outcome.
func Decide(current domain.PaymentState, intentID string, outcome domain.PaymentOutcome) DecisionKind {
	if intentID == "" || current.IntentID != intentID {
		return DecisionStale
	}
	target := outcome.Status()
	if current.Status.Terminal() {
		if current.Status == target {
			return DecisionDuplicate
		}
		return DecisionConflict
	}
	return DecisionApply
}

// OutcomeEvent is a processor result for one intent, from a webhook or a
// synchronous confirmation.
type OutcomeEvent struct {
	BookingID   int64
	IntentID    string
	Outcome     domain.PaymentOutcome
	AmountMinor int64
	At          time.Time
	Source      string
	Currency    string
}

type Result struct {
	Kind  DecisionKind
	State domain.PaymentState
}

type StateMachine struct {
	store     PaymentStore
	notifier  Notifier
	publisher events.Publisher
	log       *zap.Logger
}

func NewStateMachine(store PaymentStore, notifier Notifier, publisher events.Publisher, log *zap.Logger) *StateMachine {
	if log == nil {
		log = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &StateMachine{store: store, notifier: notifier, publisher: publisher, log: log}
}

// ApplyOutcome applies ev to the booking. Writes are compare-and-set on
// payment status and intent id; a lost race re-reads and decides again.
// Side effects run only for the attempt that applied the transition.
func (m *StateMachine) ApplyOutcome(ctx context.Context, ev OutcomeEvent) (Result, error) {
	if ev.Outcome.Status() == "" {
		return Result{}, fmt.Errorf("unknown payment outcome %q", ev.Outcome)
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	log := m.log.With(
		zap.Int64("booking_id", ev.BookingID),
		zap.String("payment_intent_id", ev.IntentID),
		zap.String("outcome", string(ev.Outcome)),
		zap.String("source", ev.Source),
	)

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := m.store.GetPaymentState(ctx, ev.BookingID)
		if err != nil {
			return Result{}, fmt.Errorf("load payment state: %w", err)
		}

		kind := Decide(current, ev.IntentID, ev.Outcome)
		switch kind {
		case DecisionStale:
			log.Info("payment outcome for superseded intent ignored",
				zap.String("stored_intent_id", current.IntentID))
			return Result{Kind: kind, State: current}, nil

		case DecisionConflict:
			log.Warn("payment state conflict",
				zap.String("stored_status", string(current.Status)),
				zap.String("incoming_status", string(ev.Outcome.Status())))
			return Result{Kind: kind, State: current}, nil

		case DecisionDuplicate:
			next, needed := backfill(current, ev)
			if !needed {
				return Result{Kind: kind, State: current}, nil
			}
			ok, err := m.store.CompareAndSetPayment(ctx, current, next)
			if err != nil {
				return Result{}, fmt.Errorf("backfill payment: %w", err)
			}
			if ok {
				return Result{Kind: kind, State: withUpdate(current, next)}, nil
			}

		case DecisionApply:
			next := domain.PaymentUpdate{
				Status:      ev.Outcome.Status(),
				IntentID:    ev.IntentID,
				AmountMinor: ev.AmountMinor,
				At:          ev.At,
			}
			if next.AmountMinor <= 0 {
				next.AmountMinor = current.AmountMinor
			}
			ok, err := m.store.CompareAndSetPayment(ctx, current, next)
			if err != nil {
				return Result{}, fmt.Errorf("apply payment outcome: %w", err)
			}
			if ok {
				applied := withUpdate(current, next)
				log.Info("payment status changed",
					zap.String("from", string(current.Status)),
					zap.String("to", string(next.Status)))
				m.afterTransition(ctx, applied, ev, log)
				return Result{Kind: kind, State: applied}, nil
			}
		}

		log.Debug("payment state changed underneath, retrying", zap.Int("attempt", attempt+1))
	}

	return Result{}, ErrConcurrentUpdate
}

// RecordSubmitted is the bookkeeping for a freshly created intent. It fails
// (false) when another attempt was recorded since expected was read.
func (m *StateMachine) RecordSubmitted(ctx context.Context, expected domain.PaymentState, intentID string, amountMinor int64, at time.Time) (bool, error) {
	if !expected.Status.AllowsNewIntent() {
		return false, nil
	}
	ok, err := m.store.CompareAndSetPayment(ctx, expected, domain.PaymentUpdate{
		Status:      domain.PaymentSubmitted,
		IntentID:    intentID,
		AmountMinor: amountMinor,
		At:          at,
	})
	if err != nil {
		return false, fmt.Errorf("record submitted payment: %w", err)
	}
	if ok {
		m.log.Info("payment submitted",
			zap.Int64("booking_id", expected.BookingID),
			zap.String("payment_intent_id", intentID),
			zap.String("previous_status", string(expected.Status)))
	}
	return ok, nil
}

// Tracks reports whether the booking's current attempt is intentID.
func (m *StateMachine) Tracks(ctx context.Context, bookingID int64, intentID string) (bool, error) {
	st, err := m.store.GetPaymentState(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return st.IntentID == intentID, nil
}

// backfill fills amount and timestamp left empty by an earlier write.
// Values already stored are kept.
func backfill(current domain.PaymentState, ev OutcomeEvent) (domain.PaymentUpdate, bool) {
	next := domain.PaymentUpdate{
		Status:      current.Status,
		IntentID:    current.IntentID,
		AmountMinor: current.AmountMinor,
		At:          ev.At,
	}
	needed := false
	if current.AmountMinor <= 0 && ev.AmountMinor > 0 {
		next.AmountMinor = ev.AmountMinor
		needed = true
	}
	if ts := current.TimestampFor(current.Status); ts != nil {
		next.At = *ts
	} else {
		needed = true
	}
	return next, needed
}

func withUpdate(st domain.PaymentState, u domain.PaymentUpdate) domain.PaymentState {
	at := u.At.UTC()
	st.Status = u.Status
	st.IntentID = u.IntentID
	st.AmountMinor = u.AmountMinor
	switch u.Status {
	case domain.PaymentSubmitted:
		st.SubmittedAt = &at
	case domain.PaymentConfirmed:
		st.ConfirmedAt = &at
	case domain.PaymentFailed:
		st.FailedAt = &at
	case domain.PaymentCanceled:
		st.CanceledAt = &at
	}
	return st
}

func (m *StateMachine) afterTransition(ctx context.Context, st domain.PaymentState, ev OutcomeEvent, log *zap.Logger) {
	recipient, typ, title, message := notificationFor(st, ev.Currency)
	if m.notifier != nil && recipient > 0 {
		data := map[string]any{
			"booking_id":        st.BookingID,
			"payment_intent_id": st.IntentID,
			"amount":            st.AmountMinor,
		}
		if err := m.notifier.Create(ctx, recipient, typ, title, message, data); err != nil {
			log.Error("payment notification failed", zap.Int64("user_id", recipient), zap.Error(err))
		}
	}

	err := m.publisher.Publish(ctx, events.Event{
		Type:        events.PaymentEventType(string(st.Status)),
		BookingID:   st.BookingID,
		IntentID:    st.IntentID,
		Status:      string(st.Status),
		AmountMinor: st.AmountMinor,
		Source:      ev.Source,
		OccurredAt:  ev.At.UTC(),
	})
	if err != nil {
		log.Error("payment event publish failed", zap.Error(err))
	}
}

// notificationFor picks who hears about a transition: the owner when money
// arrived, the payer otherwise.
func notificationFor(st domain.PaymentState, currency string) (int64, domain.NotificationType, string, string) {
	amount := formatMinor(st.AmountMinor, currency)
	switch st.Status {
	case domain.PaymentConfirmed:
		return st.OwnerID, domain.NotifPaymentConfirmed, "Payment received",
			fmt.Sprintf("Payment of %s for booking #%d was confirmed.", amount, st.BookingID)
	case domain.PaymentFailed:
		return st.RenterID, domain.NotifPaymentFailed, "Payment failed",
			fmt.Sprintf("Your payment of %s for booking #%d failed. You can try again.", amount, st.BookingID)
	case domain.PaymentCanceled:
		return st.RenterID, domain.NotifPaymentCanceled, "Payment canceled",
			fmt.Sprintf("Your payment for booking #%d was canceled.", st.BookingID)
	}
	return 0, "", "", ""
}

func formatMinor(amount int64, currency string) string {
	s := decimal.New(amount, -2).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currencyCode(currency)
}
