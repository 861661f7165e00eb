package svix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/types"
	svix "github.com/svix/svix-webhooks/go"
	"github.com/svix/svix-webhooks/go/models"
)

// Client wraps the Svix SDK client. A disabled client accepts and drops
// every message.
type Client struct {
	client  *svix.Svix
	appID   string
	enabled bool
}

// NewClient creates a new Svix client, enabled when svix is the configured
// webhook provider.
func NewClient(cfg *config.Configuration) (*Client, error) {
	if cfg.Webhook.Provider != types.WebhookProviderSvix {
		return &Client{enabled: false}, nil
	}

	serverURL, err := url.Parse(cfg.Webhook.Svix.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	svixClient, err := svix.New(cfg.Webhook.Svix.AuthToken, &svix.SvixOptions{
		ServerUrl: serverURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create svix client: %w", err)
	}

	return &Client{
		client:  svixClient,
		appID:   cfg.Webhook.Svix.AppID,
		enabled: true,
	}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// EnsureApplication returns the configured application id, creating the
// application on first use.
func (c *Client) EnsureApplication(ctx context.Context) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	if _, err := c.client.Application.Get(ctx, c.appID); err == nil {
		return c.appID, nil
	}

	app, err := c.client.Application.Create(ctx, models.ApplicationIn{
		Name: c.appID,
		Uid:  &c.appID,
	}, &svix.ApplicationCreateOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create application: %w", err)
	}

	return app.Id, nil
}

// SendMessage sends a raw JSON payload as eventType to the application.
func (c *Client) SendMessage(ctx context.Context, applicationID string, eventType string, payload json.RawMessage) error {
	if !c.Enabled() {
		return nil
	}

	var payloadMap map[string]interface{}
	if err := json.Unmarshal(payload, &payloadMap); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	_, err := c.client.Message.Create(ctx, applicationID, models.MessageIn{
		EventType: eventType,
		Payload:   payloadMap,
	}, &svix.MessageCreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}
