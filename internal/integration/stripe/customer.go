package stripe

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/stripe/stripe-go/v82"
)

// ensureCustomer returns the Stripe customer of the account, creating it on
// the first purchase. created reports whether a new customer was made.
func (c *Client) ensureCustomer(ctx context.Context, acc *account.Account, userRef string, payment base.PaymentDetails) (customerID string, created bool, err error) {
	if id := acc.ProviderCustomerID(); id != "" {
		return id, false, nil
	}

	params := &stripe.CustomerCreateParams{
		Description: stripe.String(acc.Reference),
		Metadata: map[string]string{
			"user_id":    userRef,
			"account_id": acc.ID,
		},
	}
	if acc.Email != "" {
		params.Email = stripe.String(acc.Email)
	}
	if acc.Name != "" {
		params.Name = stripe.String(acc.Name)
	}
	if payment.Token != "" {
		params.Source = stripe.String(payment.Token)
	}
	if payment.PaymentMethod != "" {
		params.PaymentMethod = stripe.String(payment.PaymentMethod)
		params.InvoiceSettings = &stripe.CustomerCreateInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(payment.PaymentMethod),
		}
	}

	customer, err := c.api.V1Customers.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create stripe customer",
			"account", acc.Reference,
			"error", err,
		)
		return "", false, mapError(err, "create_customer")
	}

	c.logger.Infow("created stripe customer",
		"account", acc.Reference,
		"stripe_customer_id", customer.ID,
	)
	return customer.ID, true, nil
}

// StaleCustomer is a Stripe customer eligible for cleanup.
type StaleCustomer struct {
	ID          string
	Description string
	Created     time.Time
}

// ListCustomersCreatedBefore streams customers created before cutoff.
func (c *Client) ListCustomersCreatedBefore(ctx context.Context, cutoff time.Time, fn func(StaleCustomer) error) error {
	params := &stripe.CustomerListParams{
		CreatedRange: &stripe.RangeQueryParams{LesserThan: cutoff.Unix()},
	}
	params.Limit = stripe.Int64(100)

	for cus, err := range c.api.V1Customers.List(ctx, params) {
		if err != nil {
			return ierr.WithError(err).
				WithHint("Unable to list customers from Stripe").
				Mark(ierr.ErrProviderUnavailable)
		}
		if err := fn(StaleCustomer{
			ID:          cus.ID,
			Description: cus.Description,
			Created:     time.Unix(cus.Created, 0).UTC(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCustomer removes a customer. Unknown customers are ignored.
func (c *Client) DeleteCustomer(ctx context.Context, customerID string) error {
	if _, err := c.api.V1Customers.Delete(ctx, customerID, nil); err != nil {
		if isResourceMissing(err) {
			return nil
		}
		return mapError(err, "delete_customer")
	}
	return nil
}
