package service

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/sentry"
	"github.com/sourcegraph/conc/pool"
)

// maxParallelCancels bounds concurrent provider calls for one request.
const maxParallelCancels = 4

// CancellationEngine stops subscriptions at the provider and records the
// stop on the account.
type CancellationEngine interface {
	// CancelSubscriptions stops every active subscription of the target, or
	// only subscriptionID when set, and returns how many were stopped. If any
	// provider cancel fails nothing is recorded and the first error in list
	// order is returned; calling again is safe.
	CancelSubscriptions(ctx context.Context, target AccountTarget, subscriptionID string) (int, error)
}

type cancellationEngine struct {
	ServiceParams
	now func() time.Time
}

func NewCancellationEngine(params ServiceParams) CancellationEngine {
	return &cancellationEngine{
		ServiceParams: params,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *cancellationEngine) CancelSubscriptions(ctx context.Context, target AccountTarget, subscriptionID string) (int, error) {
	stopped, err := s.cancel(ctx, target, subscriptionID)
	s.Metrics.ObserveCancellation(stopped, err)
	return stopped, err
}

func (s *cancellationEngine) cancel(ctx context.Context, target AccountTarget, subscriptionID string) (int, error) {
	located, _, err := locateAccount(ctx, s.AccountRepo, s.UserRepo, target)
	if err != nil {
		return 0, err
	}

	unlock := s.Locker.Lock(located.ID)
	defer unlock()

	var (
		stopped int
		ref     string
	)
	err = retryOnConflict(ctx, s.Logger, s.Metrics, "cancel", func(int) error {
		acc, err := s.AccountRepo.Get(ctx, located.ID)
		if err != nil {
			return err
		}

		targets, err := s.targets(acc, subscriptionID)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			stopped, ref = 0, acc.Reference
			return nil
		}

		if err := s.cancelAtProvider(ctx, acc, targets); err != nil {
			return err
		}

		now := s.now()
		count := 0
		for _, idx := range targets {
			if acc.Subscriptions[idx].Stop(now) {
				count++
			}
		}

		if err := s.AccountRepo.Save(ctx, acc); err != nil {
			return err
		}
		stopped, ref = count, acc.Reference
		return nil
	})
	unlock()
	if err != nil {
		return 0, err
	}

	if stopped > 0 {
		s.purgeAccount(ctx, ref)
	}

	s.Logger.Infow("subscriptions cancelled",
		"account", ref,
		"subscription_id", subscriptionID,
		"stopped", stopped,
	)
	return stopped, nil
}

// targets returns the indexes to stop. Stopped subscriptions are skipped.
func (s *cancellationEngine) targets(acc *account.Account, subscriptionID string) ([]int, error) {
	if subscriptionID != "" {
		idx := acc.FindSubscription(subscriptionID)
		if idx < 0 {
			return nil, ierr.NewError("subscription not found").
				WithHintf("Subscription %s was not found", subscriptionID).
				WithReportableDetails(map[string]any{"account": acc.Reference}).
				Mark(ierr.ErrNotFound)
		}
		if acc.Subscriptions[idx].IsStopped() {
			return nil, nil
		}
		return []int{idx}, nil
	}

	now := s.now()
	var idx []int
	for i, sub := range acc.Subscriptions {
		if sub.IsActive(now) {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// cancelAtProvider cancels targets in parallel and returns the first error
// in list order.
func (s *cancellationEngine) cancelAtProvider(ctx context.Context, acc *account.Account, targets []int) error {
	errs := make([]error, len(targets))

	p := pool.New().WithMaxGoroutines(maxParallelCancels)
	for i, idx := range targets {
		i, ref := i, base.ProviderRefFor(acc, acc.Subscriptions[idx])
		p.Go(func() {
			errs[i] = s.cancelOne(ctx, ref)
		})
	}
	p.Wait()

	for i, err := range errs {
		if err != nil {
			s.Logger.Warnw("provider cancel failed, nothing recorded",
				"account", acc.Reference,
				"subscription_id", acc.Subscriptions[targets[i]].ID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (s *cancellationEngine) cancelOne(ctx context.Context, ref base.ProviderRef) error {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Payment.Timeout)
	defer cancel()

	provider := string(s.Provider.Name())
	span, ctx := s.Sentry.StartProviderSpan(ctx, provider, "cancel")
	start := time.Now()

	err := s.Provider.Cancel(ctx, ref)
	if err != nil && ctx.Err() == context.DeadlineExceeded && !ierr.IsCancelTimeout(err) {
		err = ierr.WithError(err).
			WithHint("Cancelling at the payment provider timed out, please retry").
			Mark(ierr.ErrCancelTimeout)
	}

	sentry.FinishSpan(span, err)
	s.Metrics.ObserveProviderCall(provider, "cancel", start, err)
	return err
}
