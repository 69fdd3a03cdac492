package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

type fakeIntents struct {
	created   *stripe.PaymentIntentParams
	confirmed *stripe.PaymentIntentConfirmParams
	canceled  string

	intent *stripe.PaymentIntent
	err    error
}

func (f *fakeIntents) New(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.created = p
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func (f *fakeIntents) Get(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func (f *fakeIntents) Confirm(id string, p *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	f.confirmed = p
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func (f *fakeIntents) Cancel(id string, _ *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	f.canceled = id
	return f.intent, f.err
}

func newTestGateway(f *fakeIntents) *StripeGateway {
	return &StripeGateway{intents: f, configured: true, timeout: time.Second, log: zap.NewNop()}
}

func TestCreateIntent_AutomaticMethods(t *testing.T) {
	f := &fakeIntents{intent: &stripe.PaymentIntent{
		ID:           "pi_abc",
		ClientSecret: "pi_abc_secret",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		Amount:       5000,
		Currency:     stripe.CurrencyUSD,
		Metadata:     map[string]string{MetadataBookingID: "42"},
	}}
	g := newTestGateway(f)

	in, err := g.CreateIntent(context.Background(), CreateIntentParams{
		AmountMinor: 5000, Currency: "USD", BookingID: 42, PayerEmail: "renter@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_abc", in.ID)
	assert.Equal(t, "pi_abc_secret", in.ClientSecret)
	assert.Equal(t, int64(42), in.BookingID)
	assert.Equal(t, int64(5000), in.AmountMinor)

	require.NotNil(t, f.created)
	assert.Equal(t, "42", f.created.Metadata[MetadataBookingID])
	assert.Equal(t, "usd", *f.created.Currency)
	assert.Equal(t, "renter@example.com", *f.created.ReceiptEmail)
	require.NotNil(t, f.created.AutomaticPaymentMethods)
	assert.True(t, *f.created.AutomaticPaymentMethods.Enabled)
	assert.Equal(t, "never", *f.created.AutomaticPaymentMethods.AllowRedirects)
	assert.Nil(t, f.created.ConfirmationMethod)
	require.NotNil(t, f.created.IdempotencyKey)
	assert.Contains(t, *f.created.IdempotencyKey, "booking-42-")
}

func TestCreateIntent_WithPaymentMethod(t *testing.T) {
	f := &fakeIntents{intent: &stripe.PaymentIntent{ID: "pi_abc", Amount: 5000}}
	g := newTestGateway(f)

	_, err := g.CreateIntent(context.Background(), CreateIntentParams{
		AmountMinor: 5000, Currency: "usd", BookingID: 42, PaymentMethodID: "pm_card_visa",
	})
	require.NoError(t, err)

	assert.Equal(t, "pm_card_visa", *f.created.PaymentMethod)
	assert.Equal(t, "manual", *f.created.ConfirmationMethod)
	assert.Nil(t, f.created.AutomaticPaymentMethods)
}

func TestCreateIntent_RejectsNonPositiveAmount(t *testing.T) {
	f := &fakeIntents{}
	g := newTestGateway(f)

	_, err := g.CreateIntent(context.Background(), CreateIntentParams{AmountMinor: 0, Currency: "usd", BookingID: 1})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Nil(t, f.created)
}

func TestCreateIntent_UnconfiguredKey(t *testing.T) {
	g := NewStripe(Config{}, nil)

	_, err := g.CreateIntent(context.Background(), CreateIntentParams{AmountMinor: 100, Currency: "usd", BookingID: 1})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"auth", &stripe.Error{HTTPStatusCode: http.StatusUnauthorized, Type: stripe.ErrorTypeInvalidRequest}, ErrGatewayUnavailable},
		{"rate limit", &stripe.Error{HTTPStatusCode: http.StatusTooManyRequests}, ErrGatewayUnavailable},
		{"server", &stripe.Error{HTTPStatusCode: http.StatusBadGateway, Type: stripe.ErrorTypeAPI}, ErrGatewayUnavailable},
		{"missing", &stripe.Error{HTTPStatusCode: http.StatusNotFound, Code: stripe.ErrorCodeResourceMissing}, ErrIntentNotFound},
		{"invalid", &stripe.Error{HTTPStatusCode: http.StatusBadRequest, Type: stripe.ErrorTypeInvalidRequest}, ErrInvalidRequest},
		{"network", errors.New("dial tcp: i/o timeout"), ErrGatewayUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(&fakeIntents{err: tt.err})
			_, err := g.RetrieveIntent(context.Background(), "pi_x")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfirmIntent_DeclineIsNotAnError(t *testing.T) {
	f := &fakeIntents{err: &stripe.Error{
		HTTPStatusCode: http.StatusPaymentRequired,
		Type:           stripe.ErrorTypeCard,
		DeclineCode:    stripe.DeclineCodeInsufficientFunds,
		PaymentIntent: &stripe.PaymentIntent{
			ID:       "pi_abc",
			Status:   stripe.PaymentIntentStatusRequiresPaymentMethod,
			Amount:   5000,
			Metadata: map[string]string{MetadataBookingID: "42"},
		},
	}}
	g := newTestGateway(f)

	in, err := g.ConfirmIntent(context.Background(), "pi_abc", "pm_card_chargeDeclined")
	require.NoError(t, err)
	assert.True(t, in.Declined)
	assert.Equal(t, int64(42), in.BookingID)
	assert.Equal(t, "pm_card_chargeDeclined", *f.confirmed.PaymentMethod)
	assert.False(t, in.Succeeded())
}

func TestConfirmIntent_PendingIsNotAnError(t *testing.T) {
	f := &fakeIntents{intent: &stripe.PaymentIntent{ID: "pi_abc", Status: stripe.PaymentIntentStatusProcessing}}
	g := newTestGateway(f)

	in, err := g.ConfirmIntent(context.Background(), "pi_abc", "")
	require.NoError(t, err)
	assert.Equal(t, "processing", in.Status)
	assert.False(t, in.Declined)
	assert.Nil(t, f.confirmed.PaymentMethod)
}

func TestCancelIntent(t *testing.T) {
	f := &fakeIntents{intent: &stripe.PaymentIntent{ID: "pi_abc", Status: stripe.PaymentIntentStatusCanceled}}
	g := newTestGateway(f)

	require.NoError(t, g.CancelIntent(context.Background(), "pi_abc"))
	assert.Equal(t, "pi_abc", f.canceled)
}
