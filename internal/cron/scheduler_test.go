package cron

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/flexprice/subscriptions/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler(t *testing.T) {
	log := logger.NewNoopLogger()
	cleanup := service.NewCustomerCleanup(testutil.NewInMemoryAccountStore(), nil, 10, time.Hour, log)

	t.Run("registers cleanup", func(t *testing.T) {
		s, err := NewScheduler(config.GetDefaultConfig(), cleanup, log)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Entries())
	})

	t.Run("no cleanup", func(t *testing.T) {
		s, err := NewScheduler(config.GetDefaultConfig(), nil, log)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Entries())
	})

	t.Run("invalid schedule", func(t *testing.T) {
		cfg := config.GetDefaultConfig()
		cfg.Cleanup.Schedule = "every now and then"
		_, err := NewScheduler(cfg, cleanup, log)
		assert.Error(t, err)
	})

	t.Run("start and stop", func(t *testing.T) {
		s, err := NewScheduler(config.GetDefaultConfig(), cleanup, log)
		require.NoError(t, err)
		s.Start()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, s.Stop(ctx))
	})
}
