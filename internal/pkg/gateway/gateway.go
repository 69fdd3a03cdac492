// Package gateway is the only place that talks to the payment processor and
// the only holder of its credentials.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"
)

const (
	MetadataBookingID = "booking_id"
	defaultTimeout    = 15 * time.Second
)

type Config struct {
	SecretKey string
	Timeout   time.Duration
	// BackendURL overrides the Stripe API base URL (stripe-mock, tests).
	BackendURL string
}

type CreateIntentParams struct {
	AmountMinor     int64
	Currency        string
	BookingID       int64
	PayerEmail      string
	PaymentMethodID string
}

// Intent is the part of a processor payment intent the system tracks.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountMinor  int64
	Currency     string
	BookingID    int64
	// Declined is set when a confirmation was rejected by the card issuer.
	Declined bool
}

func (i *Intent) Succeeded() bool {
	return i != nil && i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

func (i *Intent) Canceled() bool {
	return i != nil && i.Status == string(stripe.PaymentIntentStatusCanceled)
}

// intentAPI is the subset of the Stripe payment intent client in use.
type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type StripeGateway struct {
	intents    intentAPI
	configured bool
	timeout    time.Duration
	log        *zap.Logger
}

func NewStripe(cfg Config, log *zap.Logger) *StripeGateway {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}
	api := client.New(cfg.SecretKey, backends)

	return &StripeGateway{
		intents:    api.PaymentIntents,
		configured: strings.TrimSpace(cfg.SecretKey) != "",
		timeout:    timeout,
		log:        log,
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	if p.AmountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	if !g.configured {
		return nil, fmt.Errorf("%w: secret key is not configured", ErrGatewayUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(strings.ToLower(p.Currency)),
	}
	params.Context = ctx
	params.AddMetadata(MetadataBookingID, strconv.FormatInt(p.BookingID, 10))
	params.SetIdempotencyKey(fmt.Sprintf("booking-%d-%s", p.BookingID, uuid.NewString()))
	if p.PayerEmail != "" {
		params.ReceiptEmail = stripe.String(p.PayerEmail)
	}
	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
		params.ConfirmationMethod = stripe.String(string(stripe.PaymentIntentConfirmationMethodManual))
	} else {
		// no return URL exists, so redirect-based methods are excluded
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String(string(stripe.PaymentIntentAutomaticPaymentMethodsAllowRedirectsNever)),
		}
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, g.translate("create", "", err)
	}

	g.log.Info("payment intent created",
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("booking_id", p.BookingID),
		zap.Int64("amount", pi.Amount),
		zap.String("status", string(pi.Status)),
	)
	return toIntent(pi), nil
}

// ConfirmIntent returns the processor's view after confirmation. Pending and
// declined results are not errors; check Status and Declined.
func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error) {
	if !g.configured {
		return nil, fmt.Errorf("%w: secret key is not configured", ErrGatewayUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	if paymentMethodID != "" {
		params.PaymentMethod = stripe.String(paymentMethodID)
	}

	pi, err := g.intents.Confirm(intentID, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Type == stripe.ErrorTypeCard {
			g.log.Info("payment intent confirmation declined",
				zap.String("payment_intent_id", intentID),
				zap.String("decline_code", string(serr.DeclineCode)),
			)
			out := &Intent{ID: intentID, Status: string(stripe.PaymentIntentStatusRequiresPaymentMethod), Declined: true}
			if serr.PaymentIntent != nil {
				out = toIntent(serr.PaymentIntent)
				out.Declined = true
			}
			return out, nil
		}
		return nil, g.translate("confirm", intentID, err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	if !g.configured {
		return nil, fmt.Errorf("%w: secret key is not configured", ErrGatewayUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.intents.Get(intentID, params)
	if err != nil {
		return nil, g.translate("retrieve", intentID, err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	if !g.configured {
		return fmt.Errorf("%w: secret key is not configured", ErrGatewayUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	if _, err := g.intents.Cancel(intentID, params); err != nil {
		return g.translate("cancel", intentID, err)
	}
	return nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	out := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
	}
	if v, ok := pi.Metadata[MetadataBookingID]; ok {
		out.BookingID, _ = strconv.ParseInt(v, 10, 64)
	}
	return out
}
