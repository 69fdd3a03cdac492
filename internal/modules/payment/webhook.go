package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"rentals/internal/domain"
	"rentals/internal/pkg/gateway"
)

const (
	ActionIgnored   = "ignored"
	ActionNoBooking = "no_booking"
	ActionDuplicate = "duplicate"
)

// Reconciler is the only ingress for processor-pushed events.
type Reconciler struct {
	secret  string
	machine *StateMachine
	journal Journal
	log     *zap.Logger
}

func NewReconciler(secret string, machine *StateMachine, journal Journal, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{secret: secret, machine: machine, journal: journal, log: log}
}

// Handle verifies payload against the signature header and applies the
// outcome it carries. A non-nil error other than ErrSignatureInvalid means
// the delivery must be retried.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	if strings.TrimSpace(r.secret) == "" {
		r.log.Error("webhook secret is not configured")
		return WebhookResult{}, fmt.Errorf("%w: endpoint secret missing", ErrSignatureInvalid)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, r.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		r.log.Warn("webhook signature verification failed", zap.Error(err))
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	res := WebhookResult{EventID: ev.ID, EventType: string(ev.Type)}
	log := r.log.With(zap.String("event_id", ev.ID), zap.String("event_type", string(ev.Type)))

	outcome, tracked := outcomeForEvent(ev.Type)
	if !tracked {
		res.Action = ActionIgnored
		log.Debug("webhook event type not tracked")
		return res, nil
	}

	var pi stripe.PaymentIntent
	if ev.Data == nil || json.Unmarshal(ev.Data.Raw, &pi) != nil || pi.ID == "" {
		res.Action = ActionNoBooking
		log.Warn("webhook payload has no payment intent")
		return res, nil
	}
	log = log.With(zap.String("payment_intent_id", pi.ID))

	bookingID, err := strconv.ParseInt(pi.Metadata[gateway.MetadataBookingID], 10, 64)
	if err != nil || bookingID <= 0 {
		res.Action = ActionNoBooking
		log.Warn("webhook payment intent carries no booking id",
			zap.String("metadata_booking_id", pi.Metadata[gateway.MetadataBookingID]))
		return res, nil
	}
	res.BookingID = bookingID
	log = log.With(zap.Int64("booking_id", bookingID))

	created := time.Unix(ev.Created, 0).UTC()
	if ev.Created == 0 {
		created = time.Now().UTC()
	}

	if r.journal != nil {
		stored, err := r.journal.Record(ctx, &domain.StripeWebhookEvent{
			StripeEventID:   ev.ID,
			EventType:       string(ev.Type),
			PaymentIntentID: pi.ID,
			BookingID:       &bookingID,
			StripeCreatedAt: &created,
		})
		switch {
		case err != nil:
			log.Warn("webhook journal write failed", zap.Error(err))
		case stored.Status == domain.WebhookProcessed:
			res.Action = ActionDuplicate
			log.Info("webhook event already processed")
			return res, nil
		}
	}

	amount := pi.Amount
	if outcome == domain.OutcomeSucceeded && pi.AmountReceived > 0 {
		amount = pi.AmountReceived
	}

	result, err := r.machine.ApplyOutcome(ctx, OutcomeEvent{
		BookingID:   bookingID,
		IntentID:    pi.ID,
		Outcome:     outcome,
		AmountMinor: amount,
		At:          created,
		Source:      SourceWebhook,
		Currency:    string(pi.Currency),
	})
	if err != nil {
		log.Error("webhook processing failed", zap.Error(err))
		r.markOutcome(ctx, ev.ID, domain.WebhookFailed, err.Error())
		return res, err
	}

	res.Action = string(result.Kind)
	r.markOutcome(ctx, ev.ID, journalStatus(result.Kind), "")
	log.Info("webhook event handled", zap.String("action", res.Action),
		zap.String("payment_status", string(result.State.Status)))
	return res, nil
}

func (r *Reconciler) markOutcome(ctx context.Context, eventID string, status domain.WebhookEventStatus, lastErr string) {
	if r.journal == nil {
		return
	}
	if err := r.journal.MarkOutcome(ctx, eventID, status, lastErr); err != nil {
		r.log.Warn("webhook journal update failed", zap.String("event_id", eventID), zap.Error(err))
	}
}

func outcomeForEvent(t stripe.EventType) (domain.PaymentOutcome, bool) {
	switch t {
	case stripe.EventTypePaymentIntentSucceeded:
		return domain.OutcomeSucceeded, true
	case stripe.EventTypePaymentIntentPaymentFailed:
		return domain.OutcomeFailed, true
	case stripe.EventTypePaymentIntentCanceled:
		return domain.OutcomeCanceled, true
	}
	return "", false
}

func journalStatus(k DecisionKind) domain.WebhookEventStatus {
	switch k {
	case DecisionStale:
		return domain.WebhookStale
	case DecisionConflict:
		return domain.WebhookConflict
	}
	return domain.WebhookProcessed
}
