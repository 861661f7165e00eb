package testutil

import (
	"context"

	"github.com/flexprice/subscriptions/internal/domain/user"
	ierr "github.com/flexprice/subscriptions/internal/errors"
)

// InMemoryUserStore implements user.Repository
type InMemoryUserStore struct {
	*InMemoryStore[*user.User]
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore[*user.User](),
	}
}

func (s *InMemoryUserStore) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return ierr.NewError("user cannot be nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, u.ID, u)
}

func (s *InMemoryUserStore) GetByReference(ctx context.Context, reference string) (*user.User, error) {
	u, ok := s.Find(ctx, func(u *user.User) bool {
		return u.Reference == reference
	})
	if !ok {
		return nil, ierr.NewError("user not found").
			WithHintf("User %s was not found", reference).
			Mark(ierr.ErrNotFound)
	}
	return u, nil
}

func (s *InMemoryUserStore) ListByAccount(ctx context.Context, accountID string) ([]*user.User, error) {
	return s.InMemoryStore.List(ctx, accountID, func(_ context.Context, u *user.User, filter interface{}) bool {
		return u.AccountID == filter.(string)
	}, func(i, j *user.User) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
}
