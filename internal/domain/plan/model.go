package plan

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flexprice/subscriptions/internal/types"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Plan is a purchasable offering. It is read-only to the subscription flows.
type Plan struct {
	ID          string         `db:"id" json:"id"`
	Reference   string         `db:"reference" json:"reference"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	Position    int            `db:"position" json:"position"`
	IsAvailable bool           `db:"is_available" json:"is_available"`
	// AllowMultiple false means at most one active subscription among all
	// exclusive plans may exist on an account.
	AllowMultiple bool           `db:"allow_multiple" json:"allow_multiple"`
	Price         PriceTable     `db:"price" json:"price"`
	TrialDays     int            `db:"trial_days" json:"trial_days"`
	Metadata      types.Metadata `db:"metadata" json:"metadata"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// PriceTable holds the plan's amounts per billing interval.
type PriceTable struct {
	Month       *decimal.Decimal `json:"month,omitempty"`
	Year        *decimal.Decimal `json:"year,omitempty"`
	Once        *decimal.Decimal `json:"once,omitempty"`
	VATIncluded bool             `json:"vatIncluded"`
	Currency    string           `json:"currency,omitempty"`
}

// Amounts returns the intervals present in the table with their amounts.
func (p PriceTable) Amounts() map[types.BillingInterval]decimal.Decimal {
	out := make(map[types.BillingInterval]decimal.Decimal, 3)
	if p.Month != nil {
		out[types.BillingIntervalMonth] = *p.Month
	}
	if p.Year != nil {
		out[types.BillingIntervalYear] = *p.Year
	}
	if p.Once != nil {
		out[types.BillingIntervalOnce] = *p.Once
	}
	return out
}

// HasInterval reports whether the plan can be billed at interval b.
func (p PriceTable) HasInterval(b types.BillingInterval) bool {
	_, ok := p.Amounts()[b]
	return ok
}

// Scan implements the sql.Scanner interface for the JSONB price column
func (p *PriceTable) Scan(value interface{}) error {
	if value == nil {
		*p = PriceTable{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal price table: %v", value)
	}

	return json.Unmarshal(bytes, p)
}

// Value implements the driver.Valuer interface for the JSONB price column
func (p PriceTable) Value() (driver.Value, error) {
	return json.Marshal(p)
}
