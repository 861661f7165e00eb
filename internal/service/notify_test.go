package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestNotifier_OutlivesRequestContext(t *testing.T) {
	n := NewNotifier(time.Second, logger.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var taskErr error
	n.Go(ctx, "test", func(ctx context.Context) error {
		<-started
		taskErr = ctx.Err()
		return nil
	})
	cancel()
	close(started)
	n.Wait()

	assert.NoError(t, taskErr)
}

func TestNotifier_BoundsTaskByTimeout(t *testing.T) {
	n := NewNotifier(20*time.Millisecond, logger.NewNoopLogger())

	var taskErr error
	n.Go(context.Background(), "test", func(ctx context.Context) error {
		<-ctx.Done()
		taskErr = ctx.Err()
		return taskErr
	})
	n.Wait()

	assert.ErrorIs(t, taskErr, context.DeadlineExceeded)
}

func TestNotifier_RecoversPanics(t *testing.T) {
	n := NewNotifier(time.Second, logger.NewNoopLogger())

	ran := false
	n.Go(context.Background(), "boom", func(context.Context) error {
		panic("boom")
	})
	n.Go(context.Background(), "fail", func(context.Context) error {
		ran = true
		return errors.New("failed")
	})

	assert.NotPanics(t, n.Wait)
	assert.True(t, ran)
}
