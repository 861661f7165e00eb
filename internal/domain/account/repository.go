package account

import (
	"context"
)

// Repository loads and saves whole accounts. Save is atomic for one account
// and fails with ErrVersionConflict when the stored version moved on since
// the account was loaded.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	Get(ctx context.Context, id string) (*Account, error)
	GetByReference(ctx context.Context, reference string) (*Account, error)
	// GetByProviderMetadata finds the account whose provider metadata holds
	// value under key.
	GetByProviderMetadata(ctx context.Context, key, value string) (*Account, error)
	// Save persists account and increments account.Version on success.
	Save(ctx context.Context, account *Account) error
}
