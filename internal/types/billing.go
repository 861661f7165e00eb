package types

import (
	"time"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/samber/lo"
)

// BillingInterval is the recurrence of a subscription charge. The same keys
// index a plan's price table.
type BillingInterval string

const (
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
	// BillingIntervalOnce only appears in price tables; subscriptions recur.
	BillingIntervalOnce BillingInterval = "once"

	DefaultBillingInterval = BillingIntervalMonth
)

// Expiry periods for one billing interval. A month is 31 days and a year 366
// so a subscription never lapses before the provider's charge lands.
const (
	MonthPeriod = 31 * 24 * time.Hour
	YearPeriod  = 366 * 24 * time.Hour
)

// MaxIntervalCount is the largest number of intervals one renewal may cover.
const MaxIntervalCount = 36

func (b BillingInterval) String() string {
	return string(b)
}

// Validate accepts only the recurring intervals a subscription can carry.
func (b BillingInterval) Validate() error {
	allowedValues := []BillingInterval{
		BillingIntervalMonth,
		BillingIntervalYear,
	}

	if !lo.Contains(allowedValues, b) {
		return ierr.NewError("invalid billing interval").
			WithHint("Billing must be either 'month' or 'year'").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": b,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// OrDefault returns the interval, or month when unset.
func (b BillingInterval) OrDefault() BillingInterval {
	if b == "" {
		return DefaultBillingInterval
	}
	return b
}

// Period returns the expiry extension for count intervals.
func (b BillingInterval) Period(count int64) time.Duration {
	count = min(max(count, 1), MaxIntervalCount)
	if b == BillingIntervalYear {
		return time.Duration(count) * YearPeriod
	}
	return time.Duration(count) * MonthPeriod
}
