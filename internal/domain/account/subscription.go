package account

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flexprice/subscriptions/internal/types"
)

// Subscription binds an account to a plan. It has no identity outside its
// account and is persisted as part of the account row.
type Subscription struct {
	ID            string                `json:"id"`
	PlanID        string                `json:"plan_id"`
	PlanReference string                `json:"plan"`
	Billing       types.BillingInterval `json:"billing"`
	DateCreated   time.Time             `json:"date_created"`
	DateExpires   time.Time             `json:"date_expires"`
	// DateStopped is terminal: once set it is never cleared.
	DateStopped      *time.Time     `json:"date_stopped,omitempty"`
	DiscountCode     string         `json:"discount_code,omitempty"`
	ProviderMetadata types.Metadata `json:"provider_metadata,omitempty"`
}

// NewSubscription returns an unsaved subscription without an expiry date.
func NewSubscription(planID, planReference string, billing types.BillingInterval, discountCode string, now time.Time) Subscription {
	return Subscription{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:           planID,
		PlanReference:    planReference,
		Billing:          billing.OrDefault(),
		DateCreated:      now,
		DiscountCode:     discountCode,
		ProviderMetadata: types.Metadata{},
	}
}

// IsActive reports whether the subscription is unexpired and not stopped.
func (s Subscription) IsActive(now time.Time) bool {
	return s.DateExpires.After(now) && s.DateStopped == nil
}

func (s Subscription) IsStopped() bool {
	return s.DateStopped != nil
}

// Stop sets DateStopped unless already set. It reports whether it changed.
func (s *Subscription) Stop(now time.Time) bool {
	if s.DateStopped != nil {
		return false
	}
	stopped := now
	s.DateStopped = &stopped
	return true
}

// Extend pushes DateExpires forward by d, starting from now if the
// subscription already lapsed.
func (s *Subscription) Extend(d time.Duration, now time.Time) {
	base := s.DateExpires
	if base.Before(now) {
		base = now
	}
	s.DateExpires = base.Add(d)
}

// ProviderSubscriptionID returns the provider-side reference, if any.
func (s Subscription) ProviderSubscriptionID() string {
	return s.ProviderMetadata.Get(types.MetadataKeyStripeSubscriptionID)
}

// Subscriptions is the ordered list embedded on an account. Insertion order
// is creation order.
type Subscriptions []Subscription

// Scan implements the sql.Scanner interface for the JSONB subscriptions column
func (s *Subscriptions) Scan(value interface{}) error {
	if value == nil {
		*s = Subscriptions{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal subscriptions: %v", value)
	}

	result := Subscriptions{}
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*s = result
	return nil
}

// Value implements the driver.Valuer interface for the JSONB subscriptions column
func (s Subscriptions) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal(Subscriptions{})
	}
	return json.Marshal(s)
}

// Copy returns a deep copy.
func (s Subscriptions) Copy() Subscriptions {
	if s == nil {
		return nil
	}
	out := make(Subscriptions, len(s))
	for i, sub := range s {
		out[i] = sub
		out[i].ProviderMetadata = sub.ProviderMetadata.Copy()
		if sub.DateStopped != nil {
			stopped := *sub.DateStopped
			out[i].DateStopped = &stopped
		}
	}
	return out
}
