package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBillingInterval_Validate(t *testing.T) {
	tests := []struct {
		name     string
		interval BillingInterval
		wantErr  bool
	}{
		{"month", BillingIntervalMonth, false},
		{"year", BillingIntervalYear, false},
		{"once is not recurring", BillingIntervalOnce, true},
		{"empty", "", true},
		{"unknown", "week", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.interval.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBillingInterval_Period(t *testing.T) {
	day := 24 * time.Hour

	assert.Equal(t, 31*day, BillingIntervalMonth.Period(1))
	assert.Equal(t, 366*day, BillingIntervalYear.Period(1))
	assert.Equal(t, 93*day, BillingIntervalMonth.Period(3))
	assert.Equal(t, 31*day, BillingInterval("").Period(0), "zero count extends once")
	assert.Equal(t, BillingIntervalMonth, BillingInterval("").OrDefault())

	capped := BillingIntervalYear.Period(MaxIntervalCount)
	assert.Equal(t, capped, BillingIntervalYear.Period(292))
	assert.Positive(t, BillingIntervalYear.Period(math.MaxInt64))
}

func TestSurrogateKeyForAccount(t *testing.T) {
	assert.Equal(t, "Account:acme", SurrogateKeyForAccount("acme"))
}

func TestGenerateErrorReference(t *testing.T) {
	ref := GenerateErrorReference()
	assert.NotEmpty(t, ref)
	assert.LessOrEqual(t, len(ref), 12)
	assert.Equal(t, "E", ref[:1])
}
