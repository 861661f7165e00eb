package stripe

import (
	"bytes"
	"context"
	"encoding/json"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// invoicePayload is the part of an invoice event the renewal flow reads.
// The subscription id moved under parent.subscription_details in newer API
// versions, so both locations are read.
type invoicePayload struct {
	ID           string       `json:"id"`
	Customer     expandableID `json:"customer"`
	Subscription expandableID `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription expandableID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	Lines struct {
		Data []invoiceLine `json:"data"`
	} `json:"lines"`
}

type invoiceLine struct {
	Plan  *recurring `json:"plan"`
	Price *struct {
		Recurring *recurring `json:"recurring"`
	} `json:"price"`
}

type recurring struct {
	Interval      string `json:"interval"`
	IntervalCount int64  `json:"interval_count"`
}

// expandableID accepts either an id string or an expanded object.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

func (p *invoicePayload) subscriptionID() string {
	if p.Subscription != "" {
		return string(p.Subscription)
	}
	if p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		return string(p.Parent.SubscriptionDetails.Subscription)
	}
	return ""
}

// recurrings returns the recurring info of every line item.
func (p *invoicePayload) recurrings() []recurring {
	var out []recurring
	for _, line := range p.Lines.Data {
		if line.Plan != nil && line.Plan.Interval != "" {
			out = append(out, *line.Plan)
			continue
		}
		if line.Price != nil && line.Price.Recurring != nil {
			out = append(out, *line.Price.Recurring)
		}
	}
	return out
}

// renewalInterval is year when any line item bills yearly, month otherwise.
// The count comes from the first line with the chosen interval.
func (p *invoicePayload) renewalInterval() (types.BillingInterval, int64) {
	lines := p.recurrings()

	interval := types.BillingIntervalMonth
	if lo.ContainsBy(lines, func(r recurring) bool { return r.Interval == string(types.BillingIntervalYear) }) {
		interval = types.BillingIntervalYear
	}

	count := int64(1)
	if line, ok := lo.Find(lines, func(r recurring) bool { return r.Interval == string(interval) }); ok && line.IntervalCount > 0 {
		count = line.IntervalCount
	}
	return interval, count
}

func (c *Client) ParseRenewalNotification(_ context.Context, in base.RenewalNotificationInput) (*base.RenewalNotification, error) {
	event, err := c.constructEvent(in)
	if err != nil {
		return nil, err
	}

	if event.Type != stripe.EventTypeInvoicePaymentSucceeded {
		c.logger.Debugw("ignoring stripe event", "event_id", event.ID, "event_type", event.Type)
		return nil, ierr.NewErrorf("unsupported stripe event %s", event.Type).
			WithHintf("Event type %s is not a renewal", event.Type).
			Mark(ierr.ErrInvalidNotification)
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, ierr.NewError("stripe event without data").
			WithHint("Notification carries no invoice").
			Mark(ierr.ErrInvalidNotification)
	}

	var invoice invoicePayload
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Notification invoice could not be decoded").
			Mark(ierr.ErrInvalidNotification)
	}

	if invoice.Customer == "" {
		return nil, ierr.NewError("invoice without customer").
			WithHint("Notification does not reference a customer").
			Mark(ierr.ErrInvalidNotification)
	}

	interval, count := invoice.renewalInterval()
	if count > types.MaxIntervalCount {
		return nil, ierr.NewErrorf("interval count %d out of range", count).
			WithHintf("Renewal interval count must be at most %d", types.MaxIntervalCount).
			Mark(ierr.ErrInvalidNotification)
	}

	c.logger.Infow("stripe renewal notification received",
		"event_id", event.ID,
		"stripe_customer_id", invoice.Customer,
		"stripe_subscription_id", invoice.subscriptionID(),
		"interval", interval,
		"interval_count", count,
	)

	return &base.RenewalNotification{
		EventID:        event.ID,
		CustomerID:     string(invoice.Customer),
		SubscriptionID: invoice.subscriptionID(),
		Interval:       interval,
		IntervalCount:  count,
	}, nil
}

func (c *Client) constructEvent(in base.RenewalNotificationInput) (stripe.Event, error) {
	if c.webhookSecret == "" {
		var event stripe.Event
		if err := json.Unmarshal(in.Payload, &event); err != nil {
			return stripe.Event{}, ierr.WithError(err).
				WithHint("Notification body is not a valid event").
				Mark(ierr.ErrInvalidNotification)
		}
		return event, nil
	}

	event, err := webhook.ConstructEventWithOptions(in.Payload, in.Signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		c.logger.Warnw("stripe webhook verification failed", "error", err)
		return stripe.Event{}, ierr.WithError(err).
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrInvalidNotification)
	}
	return event, nil
}
