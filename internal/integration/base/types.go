package base

import (
	"context"

	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/types"
)

// PaymentProvider is the slice of a payment provider the subscription core
// depends on. Implementations must be safe for concurrent use.
type PaymentProvider interface {
	Name() types.PaymentProviderType

	// CreateOrUpdate creates the provider subscription for a new slot, or
	// moves the existing one to the requested plan. It never mutates the
	// account; everything to persist comes back in the result.
	CreateOrUpdate(ctx context.Context, req *SubscriptionRequest) (*SubscriptionResult, error)

	// Cancel stops billing for ref. Already cancelled or unknown
	// subscriptions are not an error.
	Cancel(ctx context.Context, ref ProviderRef) error

	// ParseRenewalNotification verifies and decodes a provider callback.
	// Anything other than a successful invoice payment is rejected.
	ParseRenewalNotification(ctx context.Context, in RenewalNotificationInput) (*RenewalNotification, error)
}

// PaymentDetails carries whichever payment credential the client supplied.
type PaymentDetails struct {
	Token         string `json:"token,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

func (p PaymentDetails) IsEmpty() bool {
	return p.Token == "" && p.PaymentMethod == ""
}

type SubscriptionRequest struct {
	Account *account.Account
	// UserRef is recorded on newly created provider customers.
	UserRef string
	Plan    *plan.Plan
	Billing types.BillingInterval
	// Existing is nil when a new slot is being created.
	Existing     *account.Subscription
	DiscountCode string
	Payment      PaymentDetails
}

// SubscriptionResult holds the provider references to merge into the
// account and subscription metadata.
type SubscriptionResult struct {
	AccountMetadata      types.Metadata
	SubscriptionMetadata types.Metadata
}

type ProviderRef struct {
	CustomerID     string
	SubscriptionID string
}

// ProviderRefFor extracts the provider references of sub.
func ProviderRefFor(acc *account.Account, sub account.Subscription) ProviderRef {
	return ProviderRef{
		CustomerID:     acc.ProviderCustomerID(),
		SubscriptionID: sub.ProviderSubscriptionID(),
	}
}

type RenewalNotificationInput struct {
	Payload   []byte
	Signature string
}

// RenewalNotification is a successful recurring payment. Every subscription
// carrying SubscriptionID is extended by IntervalCount intervals.
type RenewalNotification struct {
	EventID        string
	CustomerID     string
	SubscriptionID string
	Interval       types.BillingInterval
	IntervalCount  int64
}
