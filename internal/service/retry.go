package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/metrics"
)

// maxSaveAttempts bounds how often a load-modify-save cycle runs when
// another writer keeps winning the version check.
const maxSaveAttempts = 3

func conflictBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, maxSaveAttempts-1), ctx)
}

// retryOnConflict runs fn until it succeeds, fails with anything other than
// a version conflict, or runs out of attempts. The last error is returned
// unchanged.
func retryOnConflict(ctx context.Context, log *logger.Logger, m *metrics.Metrics, operation string, fn func(attempt int) error) error {
	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			err := fn(attempt)
			if err == nil {
				return nil
			}
			if ierr.IsVersionConflict(err) {
				m.ObserveVersionConflict(operation)
				return err
			}
			return backoff.Permanent(err)
		},
		conflictBackOff(ctx),
		func(err error, delay time.Duration) {
			log.Warnw("account changed concurrently, retrying",
				"operation", operation,
				"attempt", attempt,
				"delay", delay,
			)
		},
	)
}
