package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/httpclient"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/pubsub"
	pubsubRouter "github.com/flexprice/subscriptions/internal/pubsub/router"
	"github.com/flexprice/subscriptions/internal/svix"
	"github.com/flexprice/subscriptions/internal/types"
)

// Handler interface for processing webhook events
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub     pubsub.PubSub
	config     *config.WebhookConfig
	client     httpclient.Client
	logger     *logger.Logger
	svixClient *svix.Client
}

// NewHandler creates the webhook delivery handler
func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	client httpclient.Client,
	logger *logger.Logger,
	svixClient *svix.Client,
) (Handler, error) {
	return &handler{
		pubSub:     pubSub,
		config:     &cfg.Webhook,
		client:     client,
		logger:     logger,
		svixClient: svixClient,
	}, nil
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"webhook_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage delivers one queued event. A returned error triggers a
// redelivery, so errors that cannot improve are logged and swallowed.
func (h *handler) processMessage(msg *message.Message) error {
	ctx := msg.Context()

	var event types.WebhookEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal webhook event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil
	}

	var err error
	if h.svixClient.Enabled() {
		err = h.processMessageSvix(ctx, &event)
	} else {
		err = h.processMessageNative(ctx, &event)
	}

	if err != nil && !pubsubRouter.ShouldRetry(h.logger, err) {
		h.logger.Errorw("dropping webhook after permanent failure",
			"error", err,
			"message_uuid", msg.UUID,
			"event", event.EventName,
			"account", event.AccountRef,
		)
		return nil
	}
	return err
}

func (h *handler) processMessageSvix(ctx context.Context, event *types.WebhookEvent) error {
	appID, err := h.svixClient.EnsureApplication(ctx)
	if err != nil {
		return err
	}

	if err := h.svixClient.SendMessage(ctx, appID, event.EventName, event.Payload); err != nil {
		h.logger.Errorw("failed to send webhook via Svix",
			"error", err,
			"event_id", event.ID,
			"event", event.EventName,
		)
		return err
	}

	h.logger.Infow("webhook sent successfully via Svix",
		"event_id", event.ID,
		"event", event.EventName,
		"account", event.AccountRef,
	)
	return nil
}

func (h *handler) processMessageNative(ctx context.Context, event *types.WebhookEvent) error {
	url := h.endpointFor(event.EventName)
	if url == "" {
		h.logger.Debugw("no webhook endpoint configured, skipping",
			"event", event.EventName,
			"event_id", event.ID,
		)
		return nil
	}

	req := &httpclient.Request{
		Method: http.MethodPost,
		URL:    url,
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
		Body: event.Payload,
	}

	resp, err := h.client.Send(ctx, req)
	if err != nil {
		h.logger.Errorw("failed to send webhook",
			"error", err,
			"url", url,
			"event_id", event.ID,
			"event", event.EventName,
		)
		return err
	}

	h.logger.Infow("webhook sent successfully",
		"event_id", event.ID,
		"event", event.EventName,
		"account", event.AccountRef,
		"status_code", resp.StatusCode,
	)
	return nil
}

func (h *handler) endpointFor(eventName string) string {
	switch eventName {
	case types.WebhookEventSubscriptionRenewed:
		return h.config.RenewURL
	}
	return ""
}
