package types

import (
	"encoding/json"
	"time"
)

// WebhookEvent is an outbound notification queued for delivery
type WebhookEvent struct {
	ID         string          `json:"id"`
	EventName  string          `json:"event_name"`
	AccountRef string          `json:"account_ref"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// subscription event names
const (
	WebhookEventSubscriptionRenewed = "subscription.renewed"
)
