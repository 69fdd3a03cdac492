package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrIntentNotFound     = errors.New("payment intent not found")
	ErrInvalidRequest     = errors.New("payment gateway rejected the request")
	ErrInvalidAmount      = errors.New("amount must be positive")
)

// translate folds processor errors into the package sentinels. The raw
// processor message is logged and kept in the wrapped chain only.
func (g *StripeGateway) translate(op, intentID string, err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		g.log.Warn("payment gateway call failed",
			zap.String("op", op),
			zap.String("payment_intent_id", intentID),
			zap.Error(err),
		)
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrGatewayUnavailable, op, err)
	}

	g.log.Warn("payment gateway returned an error",
		zap.String("op", op),
		zap.String("payment_intent_id", intentID),
		zap.Int("http_status", serr.HTTPStatusCode),
		zap.String("type", string(serr.Type)),
		zap.String("code", string(serr.Code)),
		zap.String("request_id", serr.RequestID),
		zap.String("message", serr.Msg),
	)

	switch {
	case serr.Code == stripe.ErrorCodeResourceMissing || serr.HTTPStatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrIntentNotFound, op, intentID)
	case serr.HTTPStatusCode == http.StatusUnauthorized,
		serr.HTTPStatusCode == http.StatusForbidden,
		serr.HTTPStatusCode == http.StatusTooManyRequests,
		serr.HTTPStatusCode >= http.StatusInternalServerError,
		serr.Type == stripe.ErrorTypeAPI:
		return fmt.Errorf("%w: %s: %s", ErrGatewayUnavailable, op, serr.Msg)
	default:
		return fmt.Errorf("%w: %s: %s", ErrInvalidRequest, op, serr.Msg)
	}
}
