package stripe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/flexprice/subscriptions/internal/config"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/stripe/stripe-go/v82"
)

// Client adapts the Stripe API to the subscription core.
type Client struct {
	api           *stripe.Client
	webhookSecret string
	logger        *logger.Logger
}

// NewClient creates a Stripe client from the payment configuration
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return NewClientWithBackends(cfg.Payment.Stripe, nil, logger)
}

// NewClientWithBackends allows pointing the client at a different API host.
// Nil backends use the Stripe defaults.
func NewClientWithBackends(cfg config.StripeConfig, backends *stripe.Backends, logger *logger.Logger) *Client {
	if cfg.WebhookSecret == "" {
		logger.Warnw("stripe webhook secret not configured, renewal notifications are not signature checked")
	}
	return &Client{
		api:           stripe.NewClient(cfg.SecretKey, stripe.WithBackends(backends)),
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

func (c *Client) Name() types.PaymentProviderType {
	return types.PaymentProviderStripe
}

// mapError translates a Stripe failure into the error kinds the
// subscription core reacts to.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}

	if isTimeout(err) {
		return ierr.WithError(err).
			WithHintf("Payment provider did not respond in time (%s)", op).
			Mark(ierr.ErrProviderUnavailable)
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		details := map[string]any{
			"operation":   op,
			"stripe_code": string(stripeErr.Code),
			"stripe_type": string(stripeErr.Type),
		}

		switch {
		case stripeErr.Type == stripe.ErrorTypeCard,
			stripeErr.HTTPStatusCode == http.StatusPaymentRequired,
			stripeErr.Code == stripe.ErrorCodeCardDeclined,
			stripeErr.Code == stripe.ErrorCodeAuthenticationRequired:
			return ierr.WithError(err).
				WithHint(paymentHint(stripeErr)).
				WithReportableDetails(details).
				Mark(ierr.ErrPaymentRequired)
		case isMissingPaymentSource(stripeErr):
			return ierr.WithError(err).
				WithHint("A valid payment method is required").
				WithReportableDetails(details).
				Mark(ierr.ErrPaymentRequired)
		case stripeErr.Code == stripe.ErrorCodeResourceMissing:
			return ierr.WithError(err).
				WithHint("Payment provider could not find the referenced resource").
				WithReportableDetails(details).
				Mark(ierr.ErrPlanNotPurchasable)
		case stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
			stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
			stripeErr.Type == stripe.ErrorTypeAPI:
			return ierr.WithError(err).
				WithHint("Payment provider is unavailable, please try again").
				WithReportableDetails(details).
				Mark(ierr.ErrProviderUnavailable)
		case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
			return ierr.WithError(err).
				WithHint(stripeErr.Msg).
				WithReportableDetails(details).
				Mark(ierr.ErrValidation)
		}

		return ierr.WithError(err).
			WithHint("Payment provider rejected the request").
			WithReportableDetails(details).
			Mark(ierr.ErrProviderUnavailable)
	}

	return ierr.WithError(err).
		WithHint("Payment provider is unavailable, please try again").
		Mark(ierr.ErrProviderUnavailable)
}

func paymentHint(e *stripe.Error) string {
	if e.Msg != "" {
		return e.Msg
	}
	return "A valid payment method is required"
}

// isMissingPaymentSource matches Stripe refusing to bill a customer that has
// neither a default source nor a default payment method.
func isMissingPaymentSource(e *stripe.Error) bool {
	if e.Code != stripe.ErrorCodeResourceMissing {
		return false
	}
	msg := strings.ToLower(e.Msg)
	return strings.Contains(msg, "no attached payment source") ||
		strings.Contains(msg, "default payment method")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.Code == stripe.ErrorCodeResourceMissing ||
		stripeErr.HTTPStatusCode == http.StatusNotFound
}
