package webhook

import (
	"context"

	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/pubsub"
	"github.com/flexprice/subscriptions/internal/pubsub/memory"
	pubsubRouter "github.com/flexprice/subscriptions/internal/pubsub/router"
	"github.com/flexprice/subscriptions/internal/svix"
	"github.com/flexprice/subscriptions/internal/webhook/handler"
	"github.com/flexprice/subscriptions/internal/webhook/publisher"
	"go.uber.org/fx"
)

// Module provides all webhook-related dependencies
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		pubsubRouter.NewRouter,
		svix.NewClient,
	),

	fx.Provide(
		publisher.NewPublisher,
		handler.NewHandler,
		NewWebhookService,
	),

	fx.Invoke(registerHooks),
)

func providePubSub(logger *logger.Logger) pubsub.PubSub {
	return memory.NewPubSub(logger)
}

func registerHooks(lc fx.Lifecycle, svc *WebhookService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return svc.Stop()
		},
	})
}
