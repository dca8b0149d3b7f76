package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/refund"

	"slotbook/internal/booking"
)

// StripeRefunder refunds deposits through the Stripe refunds API on behalf of
// the shop's connected account.
type StripeRefunder struct {
	client  refund.Client
	timeout time.Duration
	logger  *zerolog.Logger
}

var _ booking.Refunder = (*StripeRefunder)(nil)

// NewStripeRefunder returns nil when secretKey is empty. apiURL overrides the
// Stripe endpoint, mainly for tests and mocks.
func NewStripeRefunder(secretKey, apiURL string, logger *zerolog.Logger) *StripeRefunder {
	key := strings.TrimSpace(secretKey)
	if key == "" {
		return nil
	}
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(2),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if apiURL = strings.TrimSpace(apiURL); apiURL != "" {
		cfg.URL = stripe.String(apiURL)
		cfg.MaxNetworkRetries = stripe.Int64(0)
	}
	l := logger.With().Str("component", "stripe").Logger()
	return &StripeRefunder{
		client:  refund.Client{B: stripe.GetBackendWithConfig(stripe.APIBackend, cfg), Key: key},
		timeout: 15 * time.Second,
		logger:  &l,
	}
}

// RequestRefund refunds the full payment intent. Stripe rejections (4xx) are reported
// as an unsuccessful result; transport and server errors are returned as errors.
func (r *StripeRefunder) RequestRefund(ctx context.Context, paymentIntentID, connectedAccountID string) (booking.RefundResult, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return booking.RefundResult{Success: false, Error: "no payment intent on booking"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("refund:" + paymentIntentID)
	if connectedAccountID != "" {
		params.SetStripeAccount(connectedAccountID)
	}

	re, err := r.client.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 {
			r.logger.Warn().
				Str("payment_intent", paymentIntentID).
				Str("code", string(se.Code)).
				Msg("refund rejected")
			return booking.RefundResult{Success: false, Error: se.Msg}, nil
		}
		return booking.RefundResult{}, fmt.Errorf("stripe refund: %w", err)
	}

	switch re.Status {
	case stripe.RefundStatusSucceeded, stripe.RefundStatusPending:
		r.logger.Info().
			Str("payment_intent", paymentIntentID).
			Str("refund_id", re.ID).
			Str("status", string(re.Status)).
			Msg("refund requested")
		return booking.RefundResult{Success: true}, nil
	default:
		msg := fmt.Sprintf("refund %s", re.Status)
		if re.FailureReason != "" {
			msg += ": " + string(re.FailureReason)
		}
		return booking.RefundResult{Success: false, Error: msg}, nil
	}
}
