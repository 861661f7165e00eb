package integration

import (
	"context"
	"encoding/json"

	"github.com/flexprice/subscriptions/internal/config"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/integration/stripe"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/types"
)

// NewPaymentProvider returns the provider selected by payment.provider.
func NewPaymentProvider(cfg *config.Configuration, log *logger.Logger) (base.PaymentProvider, error) {
	switch cfg.Payment.Provider {
	case types.PaymentProviderStripe:
		if cfg.Payment.Stripe.SecretKey == "" {
			return nil, ierr.NewError("stripe secret key missing").
				WithHint("payment.stripe.secret_key is required when payment.provider is stripe").
				Mark(ierr.ErrValidation)
		}
		log.Infow("using stripe payment provider")
		return stripe.NewClient(cfg, log), nil
	case types.PaymentProviderNone, "":
		log.Warnw("no payment provider configured, subscriptions are not billed")
		return NewNoneProvider(log), nil
	default:
		return nil, ierr.NewErrorf("unknown payment provider %s", cfg.Payment.Provider).
			WithHint("payment.provider must be stripe or none").
			Mark(ierr.ErrValidation)
	}
}

// NoneProvider accepts every change without billing anyone. Renewal
// notifications use a provider neutral body:
//
//	{"type":"invoice.payment_succeeded","customer":"...","subscription":"...","interval":"month","intervalCount":1}
type NoneProvider struct {
	logger *logger.Logger
}

func NewNoneProvider(log *logger.Logger) *NoneProvider {
	return &NoneProvider{logger: log}
}

func (p *NoneProvider) Name() types.PaymentProviderType {
	return types.PaymentProviderNone
}

func (p *NoneProvider) CreateOrUpdate(_ context.Context, req *base.SubscriptionRequest) (*base.SubscriptionResult, error) {
	p.logger.Debugw("skipping payment provider", "account", req.Account.Reference, "plan", req.Plan.Reference)
	return &base.SubscriptionResult{}, nil
}

func (p *NoneProvider) Cancel(context.Context, base.ProviderRef) error {
	return nil
}

type neutralNotification struct {
	ID            string                `json:"id"`
	Type          string                `json:"type"`
	Customer      string                `json:"customer"`
	Subscription  string                `json:"subscription"`
	Interval      types.BillingInterval `json:"interval"`
	IntervalCount int64                 `json:"intervalCount"`
}

func (p *NoneProvider) ParseRenewalNotification(_ context.Context, in base.RenewalNotificationInput) (*base.RenewalNotification, error) {
	var n neutralNotification
	if err := json.Unmarshal(in.Payload, &n); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Notification body is not valid JSON").
			Mark(ierr.ErrInvalidNotification)
	}
	if n.Type != "invoice.payment_succeeded" || n.Customer == "" {
		return nil, ierr.NewError("not a renewal notification").
			WithHint("Only successful payment notifications with a customer are accepted").
			Mark(ierr.ErrInvalidNotification)
	}

	interval := n.Interval.OrDefault()
	if err := interval.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Renewal interval must be month or year").
			Mark(ierr.ErrInvalidNotification)
	}
	if n.IntervalCount <= 0 {
		n.IntervalCount = 1
	}
	if n.IntervalCount > types.MaxIntervalCount {
		return nil, ierr.NewErrorf("interval count %d out of range", n.IntervalCount).
			WithHintf("Renewal interval count must be at most %d", types.MaxIntervalCount).
			Mark(ierr.ErrInvalidNotification)
	}

	return &base.RenewalNotification{
		EventID:        n.ID,
		CustomerID:     n.Customer,
		SubscriptionID: n.Subscription,
		Interval:       interval,
		IntervalCount:  n.IntervalCount,
	}, nil
}
