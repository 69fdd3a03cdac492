package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rentals/internal/database"
	"rentals/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func findWebhookEvent(t *testing.T, db *gorm.DB, eventID string) (*domain.StripeWebhookEvent, error) {
	t.Helper()
	var ev domain.StripeWebhookEvent
	if err := db.Where("stripe_event_id = ?", eventID).First(&ev).Error; err != nil {
		return nil, translate(err)
	}
	return &ev, nil
}

func seedBooking(t *testing.T, repo *BookingRepository) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		RenterID:      1,
		PropertyID:    2,
		OwnerID:       3,
		StartDate:     time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
		AdvanceAmount: decimal.RequireFromString("25.00"),
		TotalAmount:   decimal.RequireFromString("50.00"),
		Currency:      "usd",
		Status:        domain.BookingPending,
	}
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func TestBookingRepository_CreateDefaultsPaymentUnset(t *testing.T) {
	repo := NewBookingRepository(newTestDB(t))
	b := seedBooking(t, repo)

	st, err := repo.GetPaymentState(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentUnset, st.Status)
	assert.Empty(t, st.IntentID)
	assert.Equal(t, int64(5000), b.TotalMinor())
}

func TestBookingRepository_GetByID_NotFound(t *testing.T) {
	repo := NewBookingRepository(newTestDB(t))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepository_CompareAndSetPayment(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(newTestDB(t))
	b := seedBooking(t, repo)

	st, err := repo.GetPaymentState(ctx, b.ID)
	require.NoError(t, err)

	t0 := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	ok, err := repo.CompareAndSetPayment(ctx, st, domain.PaymentUpdate{
		Status: domain.PaymentSubmitted, IntentID: "pi_abc", AmountMinor: 5000, At: t0,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// the old snapshot no longer matches
	ok, err = repo.CompareAndSetPayment(ctx, st, domain.PaymentUpdate{
		Status: domain.PaymentSubmitted, IntentID: "pi_other", AmountMinor: 5000, At: t0,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	st, err = repo.GetPaymentState(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSubmitted, st.Status)
	assert.Equal(t, "pi_abc", st.IntentID)
	require.NotNil(t, st.SubmittedAt)

	t1 := t0.Add(time.Minute)
	ok, err = repo.CompareAndSetPayment(ctx, st, domain.PaymentUpdate{
		Status: domain.PaymentConfirmed, IntentID: "pi_abc", AmountMinor: 5000, At: t1,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByPaymentIntentID(ctx, "pi_abc")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentConfirmed, got.PaymentStatus)
	require.NotNil(t, got.PaymentConfirmedAt)
	assert.True(t, got.PaymentConfirmedAt.Equal(t1))
	assert.Nil(t, got.PaymentFailedAt)
}

func TestBookingRepository_UpdateStatusGuardsSource(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(newTestDB(t))
	b := seedBooking(t, repo)

	ok, err := repo.UpdateStatus(ctx, b.ID, []domain.BookingStatus{domain.BookingPending}, domain.BookingApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, b.ID, []domain.BookingStatus{domain.BookingPending}, domain.BookingRejected)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingApproved, got.Status)
	assert.Equal(t, domain.PaymentUnset, got.PaymentStatus)
}

func TestWebhookEventRepository_RecordCountsAttempts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewWebhookEventRepository(db)

	for i := 0; i < 2; i++ {
		_, err := repo.Record(ctx, &domain.StripeWebhookEvent{StripeEventID: "evt_1", EventType: "payment_intent.succeeded"})
		require.NoError(t, err)
	}
	require.NoError(t, repo.MarkOutcome(ctx, "evt_1", domain.WebhookProcessed, ""))

	ev, err := findWebhookEvent(t, db, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, 2, ev.ProcessingAttempts)
	assert.Equal(t, domain.WebhookProcessed, ev.Status)
	assert.NotNil(t, ev.ProcessedAt)
}

func TestFavoriteRepository_DuplicateAdd(t *testing.T) {
	ctx := context.Background()
	repo := NewFavoriteRepository(newTestDB(t))

	_, err := repo.Add(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.Add(ctx, 1, 2)
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, repo.Remove(ctx, 1, 2))
	assert.ErrorIs(t, repo.Remove(ctx, 1, 2), ErrNotFound)
}

func TestWebhookEventRepository_PruneSettledKeepsFailures(t *testing.T) {
	db := newTestDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	for id, status := range map[string]domain.WebhookEventStatus{
		"evt_done": domain.WebhookProcessed,
		"evt_old":  domain.WebhookStale,
		"evt_bad":  domain.WebhookFailed,
	} {
		_, err := repo.Record(ctx, &domain.StripeWebhookEvent{StripeEventID: id, EventType: "payment_intent.succeeded"})
		require.NoError(t, err)
		require.NoError(t, repo.MarkOutcome(ctx, id, status, ""))
	}

	n, err := repo.PruneSettled(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = findWebhookEvent(t, db, "evt_bad")
	assert.NoError(t, err)
	_, err = findWebhookEvent(t, db, "evt_done")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepository_HasApprovedOverlap(t *testing.T) {
	repo := NewBookingRepository(newTestDB(t))
	ctx := context.Background()
	b := seedBooking(t, repo)

	ok, err := repo.UpdateStatus(ctx, b.ID, []domain.BookingStatus{domain.BookingPending}, domain.BookingApproved)
	require.NoError(t, err)
	require.True(t, ok)

	tests := []struct {
		name       string
		start, end time.Time
		exclude    int64
		want       bool
	}{
		{"inside", time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 2, 10, 0, 0, 0, 0, time.UTC), 0, true},
		{"touching end", time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC), 0, false},
		{"before", time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), 0, false},
		{"itself excluded", b.StartDate, b.EndDate, b.ID, false},
	}
	for _, tt := range tests {
		got, err := repo.HasApprovedOverlap(ctx, b.PropertyID, tt.start, tt.end, tt.exclude)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}
