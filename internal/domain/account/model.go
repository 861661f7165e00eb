package account

import (
	"strings"
	"time"

	"github.com/flexprice/subscriptions/internal/types"
)

// Account is the billable aggregate. Its subscriptions are only mutated by
// the subscription services, one writer per account at a time.
type Account struct {
	ID          string `db:"id" json:"id"`
	Reference   string `db:"reference" json:"reference"`
	Name        string `db:"name" json:"name"`
	Email       string `db:"email" json:"email"`
	VATNumber   string `db:"vat_number" json:"vat_number,omitempty"`
	CountryCode string `db:"country_code" json:"country_code,omitempty"`

	Subscriptions    Subscriptions  `db:"subscriptions" json:"subscriptions"`
	ProviderMetadata types.Metadata `db:"provider_metadata" json:"provider_metadata,omitempty"`

	// Version is the optimistic concurrency token, bumped on every save.
	Version   int64     `db:"version" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func NewAccount(reference, name, email string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		Reference:        reference,
		Name:             name,
		Email:            email,
		Subscriptions:    Subscriptions{},
		ProviderMetadata: types.Metadata{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// FindSubscription returns the index of the subscription with id, or -1.
func (a *Account) FindSubscription(id string) int {
	for i, s := range a.Subscriptions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// SubscriptionsByProviderID returns the indexes of every subscription whose
// provider reference equals providerSubscriptionID.
func (a *Account) SubscriptionsByProviderID(providerSubscriptionID string) []int {
	var idx []int
	if providerSubscriptionID == "" {
		return idx
	}
	for i, s := range a.Subscriptions {
		if s.ProviderSubscriptionID() == providerSubscriptionID {
			idx = append(idx, i)
		}
	}
	return idx
}

// ProviderCustomerID returns the payment provider's customer reference.
func (a *Account) ProviderCustomerID() string {
	return a.ProviderMetadata.Get(types.MetadataKeyStripeCustomerID)
}

func (a *Account) SetProviderMetadata(key, value string) {
	if a.ProviderMetadata == nil {
		a.ProviderMetadata = types.Metadata{}
	}
	a.ProviderMetadata[key] = value
}

// PaysVAT reports whether prices shown to this account include VAT. A
// business with a VAT number outside the seller's country is reverse charged.
func (a *Account) PaysVAT(sellerCountry string) bool {
	if a.VATNumber == "" || sellerCountry == "" || a.CountryCode == "" {
		return true
	}
	return strings.EqualFold(a.CountryCode, sellerCountry)
}

// Copy returns a deep copy so a failed attempt never leaks into a retry.
func (a *Account) Copy() *Account {
	c := *a
	c.Subscriptions = a.Subscriptions.Copy()
	c.ProviderMetadata = a.ProviderMetadata.Copy()
	return &c
}
