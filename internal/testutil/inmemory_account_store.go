package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
)

// InMemoryAccountStore implements account.Repository with the same version
// check as the Postgres repository. Stored accounts are copied on the way in
// and out so callers never share state with the store.
type InMemoryAccountStore struct {
	*InMemoryStore[*account.Account]

	mu    sync.Mutex
	saves int
	// BeforeSave runs inside Save before the version check. Tests use it to
	// simulate a concurrent writer.
	BeforeSave func(ctx context.Context, stored *account.Account)
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		InMemoryStore: NewInMemoryStore[*account.Account](),
	}
}

func (s *InMemoryAccountStore) Create(ctx context.Context, a *account.Account) error {
	if a == nil {
		return ierr.NewError("account cannot be nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, a.ID, a.Copy())
}

func (s *InMemoryAccountStore) Get(ctx context.Context, id string) (*account.Account, error) {
	a, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Copy(), nil
}

func (s *InMemoryAccountStore) GetByReference(ctx context.Context, reference string) (*account.Account, error) {
	a, ok := s.Find(ctx, func(a *account.Account) bool {
		return a.Reference == reference
	})
	if !ok {
		return nil, ierr.NewError("account not found").
			WithHintf("Account %s was not found", reference).
			Mark(ierr.ErrNotFound)
	}
	return a.Copy(), nil
}

func (s *InMemoryAccountStore) GetByProviderMetadata(ctx context.Context, key, value string) (*account.Account, error) {
	a, ok := s.Find(ctx, func(a *account.Account) bool {
		return a.ProviderMetadata[key] == value
	})
	if !ok {
		return nil, ierr.NewError("account not found").
			WithHintf("Account %s was not found", value).
			Mark(ierr.ErrNotFound)
	}
	return a.Copy(), nil
}

func (s *InMemoryAccountStore) Save(ctx context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.InMemoryStore.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	if s.BeforeSave != nil {
		s.BeforeSave(ctx, stored.Copy())
		if stored, err = s.InMemoryStore.Get(ctx, a.ID); err != nil {
			return err
		}
	}
	if stored.Version != a.Version {
		return ierr.NewError("account version conflict").
			WithHint("The account was modified concurrently, please retry").
			Mark(ierr.ErrVersionConflict)
	}

	a.Version++
	s.saves++
	s.Upsert(ctx, a.ID, a.Copy())
	return nil
}

// Bump advances the stored version as if another writer had saved.
func (s *InMemoryAccountStore) Bump(ctx context.Context, id string) {
	if stored, err := s.InMemoryStore.Get(ctx, id); err == nil {
		bumped := stored.Copy()
		bumped.Version++
		s.Upsert(ctx, id, bumped)
	}
}

// Saves reports how many saves succeeded.
func (s *InMemoryAccountStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *InMemoryAccountStore) Clear() {
	s.mu.Lock()
	s.saves = 0
	s.BeforeSave = nil
	s.mu.Unlock()
	s.InMemoryStore.Clear()
}
