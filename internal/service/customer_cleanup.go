package service

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/stripe"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/types"
	"golang.org/x/time/rate"
)

// CustomerDirectory lists and deletes customers at the payment provider.
type CustomerDirectory interface {
	ListCustomersCreatedBefore(ctx context.Context, cutoff time.Time, fn func(stripe.StaleCustomer) error) error
	DeleteCustomer(ctx context.Context, customerID string) error
}

// CleanupResult counts what a cleanup run looked at.
type CleanupResult struct {
	Scanned int
	Deleted int
	Kept    int
	Failed  int
}

// CustomerCleanup deletes provider customers that no account references
// anymore, typically left behind by abandoned checkouts.
type CustomerCleanup struct {
	accounts  account.Repository
	directory CustomerDirectory
	limiter   *rate.Limiter
	olderThan time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewCustomerCleanup spaces provider calls to ratePerSecond.
func NewCustomerCleanup(
	accounts account.Repository,
	directory CustomerDirectory,
	ratePerSecond float64,
	olderThan time.Duration,
	logger *logger.Logger,
) *CustomerCleanup {
	if ratePerSecond <= 0 {
		ratePerSecond = 10
	}
	return &CustomerCleanup{
		accounts:  accounts,
		directory: directory,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		olderThan: olderThan,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DeleteStale scans customers created before the configured age and deletes
// the unreferenced ones. With dryRun nothing is deleted.
func (c *CustomerCleanup) DeleteStale(ctx context.Context, dryRun bool) (*CleanupResult, error) {
	cutoff := c.now().Add(-c.olderThan)
	res := &CleanupResult{}

	c.logger.Infow("starting stale customer cleanup", "cutoff", cutoff, "dry_run", dryRun)

	err := c.directory.ListCustomersCreatedBefore(ctx, cutoff, func(cus stripe.StaleCustomer) error {
		res.Scanned++
		return c.process(ctx, cus.ID, dryRun, res)
	})
	if err != nil {
		return res, err
	}

	c.logger.Infow("stale customer cleanup finished",
		"scanned", res.Scanned,
		"deleted", res.Deleted,
		"kept", res.Kept,
		"failed", res.Failed,
	)
	return res, nil
}

// DeleteCustomers deletes an explicit list of customers, still skipping the
// ones an account references.
func (c *CustomerCleanup) DeleteCustomers(ctx context.Context, ids []string, dryRun bool) (*CleanupResult, error) {
	res := &CleanupResult{}
	for _, id := range ids {
		res.Scanned++
		if err := c.process(ctx, id, dryRun, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// process returns an error only when the whole run must stop.
func (c *CustomerCleanup) process(ctx context.Context, customerID string, dryRun bool, res *CleanupResult) error {
	_, err := c.accounts.GetByProviderMetadata(ctx, types.MetadataKeyStripeCustomerID, customerID)
	switch {
	case err == nil:
		res.Kept++
		return nil
	case !ierr.IsNotFound(err):
		return err
	}

	if dryRun {
		c.logger.Infow("would delete customer", "customer_id", customerID)
		res.Deleted++
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.directory.DeleteCustomer(ctx, customerID); err != nil {
		c.logger.Warnw("failed to delete customer", "customer_id", customerID, "error", err)
		res.Failed++
		return nil
	}

	c.logger.Debugw("deleted customer", "customer_id", customerID)
	res.Deleted++
	return nil
}
