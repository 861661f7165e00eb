package stripe

import (
	"context"
	"fmt"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/stripe/stripe-go/v82"
)

// PriceLookupKey is the lookup key a Stripe price must carry to be sold as
// plan at the given billing interval, e.g. "pro_month".
func PriceLookupKey(planRef string, billing types.BillingInterval) string {
	return fmt.Sprintf("%s_%s", planRef, billing.OrDefault())
}

func (c *Client) CreateOrUpdate(ctx context.Context, req *base.SubscriptionRequest) (*base.SubscriptionResult, error) {
	priceID, err := c.lookupPrice(ctx, PriceLookupKey(req.Plan.Reference, req.Billing))
	if err != nil {
		return nil, err
	}

	if req.Account.ProviderCustomerID() == "" && req.Payment.IsEmpty() && req.Plan.TrialDays <= 0 {
		return nil, ierr.NewError("payment details required").
			WithHint("A payment token or payment method is required to purchase this plan").
			WithReportableDetails(map[string]any{
				"account": req.Account.Reference,
				"plan":    req.Plan.Reference,
			}).
			Mark(ierr.ErrPaymentRequired)
	}

	customerID, created, err := c.ensureCustomer(ctx, req.Account, req.UserRef, req.Payment)
	if err != nil {
		return nil, err
	}

	result := &base.SubscriptionResult{
		AccountMetadata:      types.Metadata{types.MetadataKeyStripeCustomerID: customerID},
		SubscriptionMetadata: types.Metadata{},
	}

	var existingID string
	if req.Existing != nil {
		existingID = req.Existing.ProviderSubscriptionID()
	}

	var sub *stripe.Subscription
	if existingID != "" {
		sub, err = c.updateSubscription(ctx, existingID, priceID, req)
	} else {
		sub, err = c.createSubscription(ctx, customerID, priceID, req, created)
	}
	if err != nil {
		return nil, err
	}

	result.SubscriptionMetadata[types.MetadataKeyStripeSubscriptionID] = sub.ID

	c.logger.Infow("stripe subscription reconciled",
		"account", req.Account.Reference,
		"plan", req.Plan.Reference,
		"billing", req.Billing,
		"stripe_subscription_id", sub.ID,
		"updated", existingID != "",
	)
	return result, nil
}

func (c *Client) createSubscription(ctx context.Context, customerID, priceID string, req *base.SubscriptionRequest, newCustomer bool) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{Price: stripe.String(priceID)},
		},
		Metadata: map[string]string{
			"account": req.Account.Reference,
			"plan":    req.Plan.Reference,
		},
	}
	if req.DiscountCode != "" {
		params.Discounts = []*stripe.SubscriptionCreateDiscountParams{
			{Coupon: stripe.String(req.DiscountCode)},
		}
	}
	if req.Plan.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(int64(req.Plan.TrialDays))
	}
	// A new customer already got the credential attached on creation.
	if !newCustomer {
		if req.Payment.PaymentMethod != "" {
			params.DefaultPaymentMethod = stripe.String(req.Payment.PaymentMethod)
		}
		if req.Payment.Token != "" {
			if err := c.attachSource(ctx, customerID, req.Payment.Token); err != nil {
				return nil, err
			}
		}
	}

	sub, err := c.api.V1Subscriptions.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create stripe subscription",
			"stripe_customer_id", customerID,
			"price_id", priceID,
			"error", err,
		)
		return nil, mapError(err, "create_subscription")
	}
	return sub, nil
}

func (c *Client) updateSubscription(ctx context.Context, subscriptionID, priceID string, req *base.SubscriptionRequest) (*stripe.Subscription, error) {
	current, err := c.api.V1Subscriptions.Retrieve(ctx, subscriptionID, nil)
	if err != nil {
		if isResourceMissing(err) {
			// The provider lost the subscription, start a fresh one on the customer.
			customerID := req.Account.ProviderCustomerID()
			return c.createSubscription(ctx, customerID, priceID, req, false)
		}
		return nil, mapError(err, "retrieve_subscription")
	}

	item := &stripe.SubscriptionUpdateItemParams{Price: stripe.String(priceID)}
	if current.Items != nil && len(current.Items.Data) > 0 {
		item.ID = stripe.String(current.Items.Data[0].ID)
	}

	params := &stripe.SubscriptionUpdateParams{
		Items: []*stripe.SubscriptionUpdateItemParams{item},
		Metadata: map[string]string{
			"plan": req.Plan.Reference,
		},
	}
	if req.DiscountCode != "" {
		params.Discounts = []*stripe.SubscriptionUpdateDiscountParams{
			{Coupon: stripe.String(req.DiscountCode)},
		}
	}
	if req.Payment.PaymentMethod != "" {
		params.DefaultPaymentMethod = stripe.String(req.Payment.PaymentMethod)
	}
	if req.Payment.Token != "" {
		if err := c.attachSource(ctx, req.Account.ProviderCustomerID(), req.Payment.Token); err != nil {
			return nil, err
		}
	}

	sub, err := c.api.V1Subscriptions.Update(ctx, subscriptionID, params)
	if err != nil {
		c.logger.Errorw("failed to update stripe subscription",
			"stripe_subscription_id", subscriptionID,
			"price_id", priceID,
			"error", err,
		)
		return nil, mapError(err, "update_subscription")
	}
	return sub, nil
}

// attachSource makes token the customer's default payment source.
func (c *Client) attachSource(ctx context.Context, customerID, token string) error {
	_, err := c.api.V1Customers.Update(ctx, customerID, &stripe.CustomerUpdateParams{
		Source: stripe.String(token),
	})
	return mapError(err, "update_customer")
}

func (c *Client) lookupPrice(ctx context.Context, lookupKey string) (string, error) {
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{lookupKey}),
		Active:     stripe.Bool(true),
	}

	for price, err := range c.api.V1Prices.List(ctx, params) {
		if err != nil {
			return "", mapError(err, "list_prices")
		}
		return price.ID, nil
	}

	return "", ierr.NewError("no stripe price for plan").
		WithHintf("Plan %s cannot be purchased", lookupKey).
		WithReportableDetails(map[string]any{"lookup_key": lookupKey}).
		Mark(ierr.ErrPlanNotPurchasable)
}

// Cancel immediately cancels the Stripe subscription.
func (c *Client) Cancel(ctx context.Context, ref base.ProviderRef) error {
	if ref.SubscriptionID == "" {
		return nil
	}

	_, err := c.api.V1Subscriptions.Cancel(ctx, ref.SubscriptionID, nil)
	if err == nil {
		c.logger.Infow("cancelled stripe subscription", "stripe_subscription_id", ref.SubscriptionID)
		return nil
	}
	if isResourceMissing(err) {
		c.logger.Debugw("stripe subscription already gone", "stripe_subscription_id", ref.SubscriptionID)
		return nil
	}
	if isTimeout(err) {
		return ierr.WithError(err).
			WithHint("Cancellation timed out, it is safe to retry").
			Mark(ierr.ErrCancelTimeout)
	}
	return mapError(err, "cancel_subscription")
}
