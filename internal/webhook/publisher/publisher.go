package publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/pubsub"
	"github.com/flexprice/subscriptions/internal/types"
)

// WebhookPublisher queues outbound events. Delivery happens asynchronously
// in the webhook handler, so a nil error only means the event was queued.
type WebhookPublisher interface {
	PublishWebhook(ctx context.Context, event *types.WebhookEvent) error
	Close() error
}

type webhookPublisher struct {
	queue  pubsub.Publisher
	topic  string
	logger *logger.Logger
}

func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) (WebhookPublisher, error) {
	return &webhookPublisher{
		queue:  pubSub,
		topic:  cfg.Webhook.Topic,
		logger: logger,
	}, nil
}

func (p *webhookPublisher) PublishWebhook(ctx context.Context, event *types.WebhookEvent) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}

	log := p.logger.With(
		"event_id", msg.UUID,
		"event_name", event.EventName,
		"account", event.AccountRef,
	)

	if err := p.queue.Publish(ctx, p.topic, msg); err != nil {
		log.Errorw("failed to queue webhook event", "error", err)
		return err
	}
	log.Debugw("queued webhook event", "topic", p.topic)
	return nil
}

func (p *webhookPublisher) Close() error {
	return p.queue.Close()
}

func toMessage(event *types.WebhookEvent) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	id := event.ID
	if id == "" {
		id = watermill.NewUUID()
	}

	msg := message.NewMessage(id, payload)
	msg.Metadata.Set("account_ref", event.AccountRef)
	msg.Metadata.Set("event_name", event.EventName)
	return msg, nil
}
