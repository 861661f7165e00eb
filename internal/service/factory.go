package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/subscriptions/internal/cache"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/domain/user"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/metrics"
	"github.com/flexprice/subscriptions/internal/purge"
	"github.com/flexprice/subscriptions/internal/sentry"
	webhookPublisher "github.com/flexprice/subscriptions/internal/webhook/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// Repositories
	AccountRepo account.Repository
	PlanRepo    plan.Repository
	UserRepo    user.Repository

	// Collaborators
	Provider         base.PaymentProvider
	Purger           purge.Purger
	Cache            cache.Cache
	WebhookPublisher webhookPublisher.WebhookPublisher
	Locker           *AccountLocker
	Notifier         *Notifier
	Metrics          *metrics.Metrics
	Sentry           *sentry.Service
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	accountRepo account.Repository,
	planRepo plan.Repository,
	userRepo user.Repository,
	provider base.PaymentProvider,
	purger purge.Purger,
	cache cache.Cache,
	webhookPublisher webhookPublisher.WebhookPublisher,
	locker *AccountLocker,
	metrics *metrics.Metrics,
	sentry *sentry.Service,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		AccountRepo:      accountRepo,
		PlanRepo:         planRepo,
		UserRepo:         userRepo,
		Provider:         provider,
		Purger:           purger,
		Cache:            cache,
		WebhookPublisher: webhookPublisher,
		Locker:           locker,
		Notifier:         NewNotifier(config.Purge.Timeout, logger),
		Metrics:          metrics,
		Sentry:           sentry,
	}
}

// purgeAccount drops the local subscription listings of the account and
// queues the CDN purge in the background. Call it after releasing the
// account lock. Purge failures are logged and never fail the caller.
func (p ServiceParams) purgeAccount(ctx context.Context, accountRef string) {
	if p.Cache != nil {
		// trailing separator keeps "acme" from matching "acme2"
		p.Cache.DeleteByPrefix(ctx, cache.GenerateKey(cache.PrefixAccountSubscriptions, accountRef, ""))
	}
	if p.Purger == nil {
		return
	}

	purger := p.Purger
	p.Notifier.Go(ctx, "purge_account", func(ctx context.Context) error {
		if err := purger.PurgeAccount(ctx, accountRef); err != nil {
			return errors.Wrapf(err, "purge account %s", accountRef)
		}
		return nil
	})
}
