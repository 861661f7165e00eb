package account

import (
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionIsActive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stopped := now.Add(-time.Hour)

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"future expiry", Subscription{DateExpires: now.Add(time.Hour)}, true},
		{"expired", Subscription{DateExpires: now.Add(-time.Hour)}, false},
		{"expires exactly now", Subscription{DateExpires: now}, false},
		{"stopped before expiry", Subscription{DateExpires: now.Add(time.Hour), DateStopped: &stopped}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.sub.IsActive(now))
		})
	}
}

func TestSubscriptionStopIsTerminal(t *testing.T) {
	now := time.Now().UTC()
	sub := Subscription{DateExpires: now.Add(time.Hour)}

	require.True(t, sub.Stop(now))
	first := *sub.DateStopped

	assert.False(t, sub.Stop(now.Add(time.Minute)))
	assert.Equal(t, first, *sub.DateStopped)
}

func TestSubscriptionExtend(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("from current expiry", func(t *testing.T) {
		sub := Subscription{DateExpires: now.Add(48 * time.Hour)}
		sub.Extend(types.MonthPeriod, now)
		assert.Equal(t, now.Add(48*time.Hour+types.MonthPeriod), sub.DateExpires)
	})

	t.Run("lapsed subscription extends from now", func(t *testing.T) {
		sub := Subscription{DateExpires: now.Add(-48 * time.Hour)}
		sub.Extend(types.YearPeriod, now)
		assert.Equal(t, now.Add(types.YearPeriod), sub.DateExpires)
	})
}

func TestAccountPaysVAT(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		seller  string
		want    bool
	}{
		{"consumer", Account{CountryCode: "DE"}, "SE", true},
		{"domestic business", Account{VATNumber: "SE123", CountryCode: "se"}, "SE", true},
		{"foreign business", Account{VATNumber: "DE123", CountryCode: "DE"}, "SE", false},
		{"no seller country configured", Account{VATNumber: "DE123", CountryCode: "DE"}, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.account.PaysVAT(tc.seller))
		})
	}
}

func TestSubscriptionsByProviderID(t *testing.T) {
	a := &Account{Subscriptions: Subscriptions{
		{ID: "a", ProviderMetadata: types.Metadata{types.MetadataKeyStripeSubscriptionID: "sub_1"}},
		{ID: "b", ProviderMetadata: types.Metadata{types.MetadataKeyStripeSubscriptionID: "sub_2"}},
		{ID: "c", ProviderMetadata: types.Metadata{types.MetadataKeyStripeSubscriptionID: "sub_1"}},
		{ID: "d"},
	}}

	assert.Equal(t, []int{0, 2}, a.SubscriptionsByProviderID("sub_1"))
	assert.Empty(t, a.SubscriptionsByProviderID(""))
	assert.Equal(t, 3, a.FindSubscription("d"))
	assert.Equal(t, -1, a.FindSubscription("missing"))
}

func TestAccountCopyIsDeep(t *testing.T) {
	now := time.Now().UTC()
	a := NewAccount("acme", "Acme", "billing@acme.test")
	a.Subscriptions = append(a.Subscriptions, NewSubscription("plan_1", "pro", types.BillingIntervalMonth, "", now))

	c := a.Copy()
	c.Subscriptions[0].ProviderMetadata["k"] = "v"
	c.Subscriptions[0].Stop(now)
	c.SetProviderMetadata(types.MetadataKeyStripeCustomerID, "cus_1")

	assert.Empty(t, a.Subscriptions[0].ProviderMetadata)
	assert.Nil(t, a.Subscriptions[0].DateStopped)
	assert.Empty(t, a.ProviderCustomerID())
}

func TestSubscriptionsScan(t *testing.T) {
	var s Subscriptions
	require.NoError(t, s.Scan([]byte(`[{"id":"sub_1","plan":"pro","billing":"year","date_expires":"2030-01-01T00:00:00Z"}]`)))
	require.Len(t, s, 1)
	assert.Equal(t, types.BillingIntervalYear, s[0].Billing)

	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s)

	assert.Error(t, s.Scan(42))
}
