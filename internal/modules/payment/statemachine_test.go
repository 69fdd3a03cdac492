package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/domain"
)

const (
	renterID int64 = 10
	ownerID  int64 = 20
)

func strPtr(s string) *string { return &s }

func submittedBooking(id int64, intentID string) *domain.Booking {
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Booking{
		ID:                 id,
		RenterID:           renterID,
		OwnerID:            ownerID,
		PropertyID:         1,
		Status:             domain.BookingApproved,
		TotalAmount:        decimal.RequireFromString("50.00"),
		AdvanceAmount:      decimal.RequireFromString("50.00"),
		Currency:           "usd",
		PaymentStatus:      domain.PaymentSubmitted,
		PaymentIntentID:    strPtr(intentID),
		PaymentAmount:      5000,
		PaymentSubmittedAt: &at,
	}
}

func newMachine(store *memStore) (*StateMachine, *recordingNotifier, *recordingPublisher) {
	n := &recordingNotifier{}
	p := &recordingPublisher{}
	return NewStateMachine(store, n, p, nil), n, p
}

func TestDecide(t *testing.T) {
	state := func(s domain.PaymentStatus, id string) domain.PaymentState {
		return domain.PaymentState{BookingID: 1, Status: s, IntentID: id}
	}
	tests := []struct {
		name    string
		current domain.PaymentState
		intent  string
		outcome domain.PaymentOutcome
		want    DecisionKind
	}{
		{"submitted succeeds", state(domain.PaymentSubmitted, "pi_1"), "pi_1", domain.OutcomeSucceeded, DecisionApply},
		{"submitted fails", state(domain.PaymentSubmitted, "pi_1"), "pi_1", domain.OutcomeFailed, DecisionApply},
		{"submitted canceled", state(domain.PaymentSubmitted, "pi_1"), "pi_1", domain.OutcomeCanceled, DecisionApply},
		{"other intent", state(domain.PaymentSubmitted, "pi_new"), "pi_old", domain.OutcomeSucceeded, DecisionStale},
		{"no intent stored", state(domain.PaymentUnset, ""), "pi_1", domain.OutcomeSucceeded, DecisionStale},
		{"empty event intent", state(domain.PaymentUnset, ""), "", domain.OutcomeSucceeded, DecisionStale},
		{"confirmed replay", state(domain.PaymentConfirmed, "pi_1"), "pi_1", domain.OutcomeSucceeded, DecisionDuplicate},
		{"failed replay", state(domain.PaymentFailed, "pi_1"), "pi_1", domain.OutcomeFailed, DecisionDuplicate},
		{"confirmed then failed", state(domain.PaymentConfirmed, "pi_1"), "pi_1", domain.OutcomeFailed, DecisionConflict},
		{"confirmed then canceled", state(domain.PaymentConfirmed, "pi_1"), "pi_1", domain.OutcomeCanceled, DecisionConflict},
		{"canceled then succeeded", state(domain.PaymentCanceled, "pi_1"), "pi_1", domain.OutcomeSucceeded, DecisionConflict},
		{"failed then succeeded", state(domain.PaymentFailed, "pi_1"), "pi_1", domain.OutcomeSucceeded, DecisionConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.current, tt.intent, tt.outcome))
		})
	}
}

func TestApplyOutcome_ConfirmsAndReplayIsIdempotent(t *testing.T) {
	store := newMemStore(submittedBooking(42, "pi_abc"))
	m, notifier, publisher := newMachine(store)
	ctx := context.Background()
	t1 := time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)

	ev := OutcomeEvent{BookingID: 42, IntentID: "pi_abc", Outcome: domain.OutcomeSucceeded, AmountMinor: 5000, At: t1, Source: SourceWebhook}

	res, err := m.ApplyOutcome(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, DecisionApply, res.Kind)

	after := store.booking(42)
	assert.Equal(t, domain.PaymentConfirmed, after.PaymentStatus)
	require.NotNil(t, after.PaymentConfirmedAt)
	assert.True(t, after.PaymentConfirmedAt.Equal(t1))
	assert.Equal(t, int64(5000), after.PaymentAmount)

	res, err = m.ApplyOutcome(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, DecisionDuplicate, res.Kind)
	assert.Equal(t, after, store.booking(42))

	require.Equal(t, 1, notifier.count())
	assert.Equal(t, sentNotification{UserID: ownerID, Type: domain.NotifPaymentConfirmed}, notifier.sent[0])
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "booking.payment.confirmed", publisher.events[0].Type)
}

func TestApplyOutcome_FailureNotifiesPayer(t *testing.T) {
	store := newMemStore(submittedBooking(1, "pi_1"))
	m, notifier, _ := newMachine(store)

	_, err := m.ApplyOutcome(context.Background(), OutcomeEvent{
		BookingID: 1, IntentID: "pi_1", Outcome: domain.OutcomeFailed, AmountMinor: 5000, At: time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentFailed, store.booking(1).PaymentStatus)
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, renterID, notifier.sent[0].UserID)
}

func TestApplyOutcome_NoRegressionFromTerminal(t *testing.T) {
	for _, settled := range []domain.PaymentOutcome{domain.OutcomeSucceeded, domain.OutcomeFailed, domain.OutcomeCanceled} {
		t.Run(string(settled), func(t *testing.T) {
			store := newMemStore(submittedBooking(1, "pi_1"))
			m, notifier, _ := newMachine(store)
			ctx := context.Background()

			_, err := m.ApplyOutcome(ctx, OutcomeEvent{BookingID: 1, IntentID: "pi_1", Outcome: settled, AmountMinor: 5000, At: time.Now()})
			require.NoError(t, err)
			before := store.booking(1)

			for _, other := range []domain.PaymentOutcome{domain.OutcomeSucceeded, domain.OutcomeFailed, domain.OutcomeCanceled} {
				if other == settled {
					continue
				}
				res, err := m.ApplyOutcome(ctx, OutcomeEvent{BookingID: 1, IntentID: "pi_1", Outcome: other, AmountMinor: 9999, At: time.Now()})
				require.NoError(t, err)
				assert.Equal(t, DecisionConflict, res.Kind)
				// a superseded intent can never move it either
				res, err = m.ApplyOutcome(ctx, OutcomeEvent{BookingID: 1, IntentID: "pi_0", Outcome: other, At: time.Now()})
				require.NoError(t, err)
				assert.Equal(t, DecisionStale, res.Kind)
			}

			assert.Equal(t, before, store.booking(1))
			assert.Equal(t, 1, notifier.count())
		})
	}
}

func TestApplyOutcome_StaleIntentIsIsolated(t *testing.T) {
	store := newMemStore(submittedBooking(7, "pi_old"))
	m, notifier, _ := newMachine(store)
	before := store.booking(7)

	res, err := m.ApplyOutcome(context.Background(), OutcomeEvent{
		BookingID: 7, IntentID: "pi_new", Outcome: domain.OutcomeSucceeded, AmountMinor: 5000, At: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionStale, res.Kind)
	assert.Equal(t, before, store.booking(7))
	assert.Zero(t, notifier.count())
}

func TestApplyOutcome_DuplicateBackfillsMissingFields(t *testing.T) {
	b := submittedBooking(3, "pi_1")
	b.PaymentStatus = domain.PaymentConfirmed
	b.PaymentAmount = 0
	store := newMemStore(b)
	m, notifier, _ := newMachine(store)
	t1 := time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)

	res, err := m.ApplyOutcome(context.Background(), OutcomeEvent{
		BookingID: 3, IntentID: "pi_1", Outcome: domain.OutcomeSucceeded, AmountMinor: 5000, At: t1,
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionDuplicate, res.Kind)

	after := store.booking(3)
	assert.Equal(t, int64(5000), after.PaymentAmount)
	require.NotNil(t, after.PaymentConfirmedAt)
	assert.True(t, after.PaymentConfirmedAt.Equal(t1))
	assert.Zero(t, notifier.count())
}

func TestApplyOutcome_RetriesAfterLostRace(t *testing.T) {
	store := newMemStore(submittedBooking(5, "pi_1"))
	m, notifier, _ := newMachine(store)
	ctx := context.Background()

	// a concurrent writer settles the booking between read and write
	store.beforeCAS = func() {
		ok, err := store.CompareAndSetPayment(ctx, store.booking(5).PaymentState(), domain.PaymentUpdate{
			Status: domain.PaymentFailed, IntentID: "pi_1", AmountMinor: 5000, At: time.Now(),
		})
		require.NoError(t, err)
		require.True(t, ok)
	}

	res, err := m.ApplyOutcome(ctx, OutcomeEvent{BookingID: 5, IntentID: "pi_1", Outcome: domain.OutcomeSucceeded, AmountMinor: 5000, At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, DecisionConflict, res.Kind)
	assert.Equal(t, domain.PaymentFailed, store.booking(5).PaymentStatus)
	assert.Zero(t, notifier.count())
}

func TestApplyOutcome_ConcurrentConflictingOutcomes(t *testing.T) {
	for i := 0; i < 50; i++ {
		store := newMemStore(submittedBooking(9, "pi_1"))
		m, notifier, _ := newMachine(store)
		t1 := time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC)

		outcomes := []domain.PaymentOutcome{domain.OutcomeSucceeded, domain.OutcomeFailed}
		results := make([]Result, len(outcomes))
		errs := make([]error, len(outcomes))

		var wg sync.WaitGroup
		for j, o := range outcomes {
			wg.Add(1)
			go func(j int, o domain.PaymentOutcome) {
				defer wg.Done()
				results[j], errs[j] = m.ApplyOutcome(context.Background(), OutcomeEvent{
					BookingID: 9, IntentID: "pi_1", Outcome: o, AmountMinor: int64(5000 + j), At: t1.Add(time.Duration(j) * time.Hour),
				})
			}(j, o)
		}
		wg.Wait()

		applied := 0
		var winner int
		for j := range outcomes {
			require.NoError(t, errs[j])
			if results[j].Kind == DecisionApply {
				applied++
				winner = j
			} else {
				assert.Equal(t, DecisionConflict, results[j].Kind)
			}
		}
		require.Equal(t, 1, applied)
		assert.Equal(t, 1, notifier.count())

		// amount and timestamp come from the same event
		after := store.booking(9)
		assert.Equal(t, outcomes[winner].Status(), after.PaymentStatus)
		assert.Equal(t, int64(5000+winner), after.PaymentAmount)
		ts := after.PaymentState().TimestampFor(after.PaymentStatus)
		require.NotNil(t, ts)
		assert.True(t, ts.Equal(t1.Add(time.Duration(winner)*time.Hour)))
	}
}

func TestApplyOutcome_NotificationFailureDoesNotFail(t *testing.T) {
	store := newMemStore(submittedBooking(1, "pi_1"))
	notifier := &recordingNotifier{err: assert.AnError}
	m := NewStateMachine(store, notifier, nil, nil)

	res, err := m.ApplyOutcome(context.Background(), OutcomeEvent{BookingID: 1, IntentID: "pi_1", Outcome: domain.OutcomeCanceled, At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, DecisionApply, res.Kind)
	assert.Equal(t, domain.PaymentCanceled, store.booking(1).PaymentStatus)
	// amount falls back to the submitted amount
	assert.Equal(t, int64(5000), store.booking(1).PaymentAmount)
}

func TestRecordSubmitted_RetryFromFailed(t *testing.T) {
	b := submittedBooking(1, "pi_old")
	b.PaymentStatus = domain.PaymentFailed
	store := newMemStore(b)
	m, notifier, _ := newMachine(store)
	ctx := context.Background()

	ok, err := m.RecordSubmitted(ctx, store.booking(1).PaymentState(), "pi_new", 5000, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	res, err := m.ApplyOutcome(ctx, OutcomeEvent{BookingID: 1, IntentID: "pi_new", Outcome: domain.OutcomeSucceeded, AmountMinor: 5000, At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, DecisionApply, res.Kind)
	assert.Equal(t, domain.PaymentConfirmed, store.booking(1).PaymentStatus)
	assert.Equal(t, 1, notifier.count())

	// a late event for the abandoned intent does nothing
	res, err = m.ApplyOutcome(ctx, OutcomeEvent{BookingID: 1, IntentID: "pi_old", Outcome: domain.OutcomeFailed, At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, DecisionStale, res.Kind)
	assert.Equal(t, domain.PaymentConfirmed, store.booking(1).PaymentStatus)
}

func TestRecordSubmitted_RefusesSettledAndStaleSnapshots(t *testing.T) {
	b := submittedBooking(1, "pi_1")
	b.PaymentStatus = domain.PaymentConfirmed
	store := newMemStore(b)
	m, _, _ := newMachine(store)

	ok, err := m.RecordSubmitted(context.Background(), store.booking(1).PaymentState(), "pi_2", 5000, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	fresh := newMemStore(&domain.Booking{ID: 2, RenterID: renterID, OwnerID: ownerID})
	m2, _, _ := newMachine(fresh)
	snapshot := fresh.booking(2).PaymentState()

	ok, err = m2.RecordSubmitted(context.Background(), snapshot, "pi_a", 5000, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = m2.RecordSubmitted(context.Background(), snapshot, "pi_b", 5000, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "pi_a", *fresh.booking(2).PaymentIntentID)
}
