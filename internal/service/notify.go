package service

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Notifier runs side effects that must not hold up the caller, such as CDN
// purges. Tasks outlive the request context but not their timeout.
type Notifier struct {
	wg      conc.WaitGroup
	timeout time.Duration
	logger  *logger.Logger
}

func NewNotifier(timeout time.Duration, log *logger.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Notifier{timeout: timeout, logger: log}
}

// Go starts fn in the background. Errors and panics are logged only.
func (n *Notifier) Go(ctx context.Context, task string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	n.wg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		var pc panics.Catcher
		pc.Try(func() {
			if err := fn(ctx); err != nil {
				n.logger.Warnw("background task failed",
					"task", task,
					"error", err,
				)
			}
		})
		if r := pc.Recovered(); r != nil {
			n.logger.Errorw("background task panicked",
				"task", task,
				"panic", r.Value,
			)
		}
	})
}

// Wait blocks until every started task has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
