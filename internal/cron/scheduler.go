package cron

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = time.Hour

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron    *cron.Cron
	cleanup *service.CustomerCleanup
	logger  *logger.Logger
}

// NewScheduler registers the jobs. A nil cleanup, as when no payment provider
// is configured, leaves the scheduler empty.
func NewScheduler(cfg *config.Configuration, cleanup *service.CustomerCleanup, logger *logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		cleanup: cleanup,
		logger:  logger,
	}

	if cleanup == nil {
		logger.Infow("customer cleanup disabled, no payment provider directory")
		return s, nil
	}

	if _, err := s.cron.AddFunc(cfg.Cleanup.Schedule, s.runCleanup); err != nil {
		return nil, err
	}
	logger.Infow("scheduled customer cleanup", "schedule", cfg.Cleanup.Schedule)
	return s, nil
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.cleanup.DeleteStale(ctx, false); err != nil {
		s.logger.Errorw("customer cleanup failed", "error", err)
	}
}

// Entries is the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func RegisterHooks(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.logger.Info("starting cron scheduler")
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.logger.Info("stopping cron scheduler")
			return s.Stop(ctx)
		},
	})
}
