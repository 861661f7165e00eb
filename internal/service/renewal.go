package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/user"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/sentry"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/flexprice/subscriptions/internal/webhook/dto"
)

// RenewalResult describes a processed renewal notification.
type RenewalResult struct {
	Account       *account.Account
	Renewed       []account.Subscription
	Interval      types.BillingInterval
	IntervalCount int64
}

// RenewalService turns a provider's successful recurring payment into an
// expiry extension of every subscription it pays for.
type RenewalService interface {
	// HandleNotification fails with ErrInvalidNotification for payloads that
	// are not a successful payment, ErrNotFound for unknown customers and
	// ErrSystem when the extension could not be stored.
	HandleNotification(ctx context.Context, in base.RenewalNotificationInput) (*RenewalResult, error)
}

type renewalService struct {
	ServiceParams
	now func() time.Time
}

func NewRenewalService(params ServiceParams) RenewalService {
	return &renewalService{
		ServiceParams: params,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *renewalService) HandleNotification(ctx context.Context, in base.RenewalNotificationInput) (*RenewalResult, error) {
	res, err := s.handle(ctx, in)
	renewed := 0
	if res != nil {
		renewed = len(res.Renewed)
	}
	s.Metrics.ObserveRenewal(renewed, err)
	return res, err
}

func (s *renewalService) handle(ctx context.Context, in base.RenewalNotificationInput) (*RenewalResult, error) {
	n, err := s.parse(ctx, in)
	if err != nil {
		if !ierr.IsInvalidNotification(err) {
			err = ierr.WithError(err).
				WithHint("Renewal notification could not be read").
				Mark(ierr.ErrInvalidNotification)
		}
		return nil, err
	}

	located, err := s.AccountRepo.GetByProviderMetadata(ctx, types.MetadataKeyStripeCustomerID, n.CustomerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("No account found for customer %s", n.CustomerID).
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}

	unlock := s.Locker.Lock(located.ID)
	defer unlock()

	result := &RenewalResult{
		Interval:      n.Interval.OrDefault(),
		IntervalCount: n.IntervalCount,
	}
	if result.IntervalCount < 1 {
		result.IntervalCount = 1
	}

	err = retryOnConflict(ctx, s.Logger, s.Metrics, "renew", func(int) error {
		acc, err := s.AccountRepo.Get(ctx, located.ID)
		if err != nil {
			return err
		}

		matches := acc.SubscriptionsByProviderID(n.SubscriptionID)
		result.Account, result.Renewed = acc, nil
		if len(matches) == 0 {
			return nil
		}

		now := s.now()
		extension := result.Interval.Period(result.IntervalCount)
		for _, idx := range matches {
			acc.Subscriptions[idx].Extend(extension, now)
		}

		if err := s.AccountRepo.Save(ctx, acc); err != nil {
			return err
		}
		for _, idx := range matches {
			result.Renewed = append(result.Renewed, acc.Subscriptions[idx])
		}
		return nil
	})
	unlock()
	if err != nil {
		if ierr.IsVersionConflict(err) {
			s.Logger.Errorw("renewal could not be stored after retries",
				"account", located.Reference,
				"event_id", n.EventID,
				"error", err,
			)
			return nil, ierr.NewError("renewal save kept conflicting").
				WithHint("The renewal could not be stored, please retry").
				Mark(ierr.ErrSystem)
		}
		return nil, err
	}

	if len(result.Renewed) == 0 {
		s.Logger.Warnw("renewal matched no subscription",
			"account", result.Account.Reference,
			"provider_subscription_id", n.SubscriptionID,
			"event_id", n.EventID,
		)
		return result, nil
	}

	s.Logger.Infow("subscriptions renewed",
		"account", result.Account.Reference,
		"renewed", len(result.Renewed),
		"interval", result.Interval,
		"interval_count", result.IntervalCount,
		"event_id", n.EventID,
	)

	s.purgeAccount(ctx, result.Account.Reference)
	s.notify(ctx, result)
	return result, nil
}

func (s *renewalService) parse(ctx context.Context, in base.RenewalNotificationInput) (*base.RenewalNotification, error) {
	provider := string(s.Provider.Name())
	span, ctx := s.Sentry.StartProviderSpan(ctx, provider, "parse_notification")
	start := time.Now()

	n, err := s.Provider.ParseRenewalNotification(ctx, in)

	sentry.FinishSpan(span, err)
	s.Metrics.ObserveProviderCall(provider, "parse_notification", start, err)
	return n, err
}

// notify queues the outbound renewal webhook. Failures are logged only.
func (s *renewalService) notify(ctx context.Context, result *RenewalResult) {
	if s.WebhookPublisher == nil {
		return
	}

	users, err := s.UserRepo.ListByAccount(ctx, result.Account.ID)
	if err != nil {
		s.Logger.Warnw("failed to load users for renewal webhook",
			"account", result.Account.Reference,
			"error", err,
		)
		users = []*user.User{}
	}

	payload, err := json.Marshal(dto.NewRenewalPayload(
		result.Account,
		users,
		result.Renewed,
		result.Interval,
		result.IntervalCount,
	))
	if err != nil {
		s.Logger.Errorw("failed to marshal renewal webhook", "error", err)
		return
	}

	event := &types.WebhookEvent{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EVENT),
		EventName:  types.WebhookEventSubscriptionRenewed,
		AccountRef: result.Account.Reference,
		Timestamp:  s.now(),
		Payload:    payload,
	}
	if err := s.WebhookPublisher.PublishWebhook(ctx, event); err != nil {
		s.Logger.Errorw("failed to publish renewal webhook",
			"account", result.Account.Reference,
			"error", err,
		)
	}
}
