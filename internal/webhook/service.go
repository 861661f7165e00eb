package webhook

import (
	"context"

	"github.com/flexprice/subscriptions/internal/logger"
	pubsubRouter "github.com/flexprice/subscriptions/internal/pubsub/router"
	"github.com/flexprice/subscriptions/internal/webhook/handler"
	"github.com/flexprice/subscriptions/internal/webhook/publisher"
)

// WebhookService owns the delivery loop for queued webhook events
type WebhookService struct {
	publisher publisher.WebhookPublisher
	handler   handler.Handler
	router    *pubsubRouter.Router
	logger    *logger.Logger
	cancel    context.CancelFunc
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	publisher publisher.WebhookPublisher,
	h handler.Handler,
	router *pubsubRouter.Router,
	l *logger.Logger,
) *WebhookService {
	return &WebhookService{
		publisher: publisher,
		handler:   h,
		router:    router,
		logger:    l,
	}
}

// Start registers the handler and runs the router in the background. It
// returns once the router is subscribed.
func (s *WebhookService) Start(ctx context.Context) error {
	s.logger.Debug("starting webhook service")
	s.handler.RegisterHandler(s.router)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	errCh := make(chan error, 1)
	go func() {
		if err := s.router.Run(runCtx); err != nil {
			s.logger.Errorw("webhook router stopped", "error", err)
			errCh <- err
		}
	}()

	select {
	case <-s.router.Running():
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	s.logger.Info("webhook service started successfully")
	return nil
}

// Stop closes the router first so no message is handled after the
// publisher is gone.
func (s *WebhookService) Stop() error {
	s.logger.Debug("stopping webhook service")

	if err := s.router.Close(); err != nil {
		s.logger.Errorw("failed to close webhook router", "error", err)
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}

	if err := s.publisher.Close(); err != nil {
		s.logger.Errorw("failed to close webhook publisher", "error", err)
		return err
	}

	s.logger.Info("webhook service stopped successfully")
	return nil
}
