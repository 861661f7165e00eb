package service

import (
	"context"

	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/user"
	ierr "github.com/flexprice/subscriptions/internal/errors"
)

// AccountTarget addresses an account directly or through one of its users.
// Exactly one of the references is set.
type AccountTarget struct {
	AccountRef string
	UserRef    string
}

func ForAccount(ref string) AccountTarget {
	return AccountTarget{AccountRef: ref}
}

func ForUser(ref string) AccountTarget {
	return AccountTarget{UserRef: ref}
}

func (t AccountTarget) Validate() error {
	if (t.AccountRef == "") == (t.UserRef == "") {
		return ierr.NewError("account target must name an account or a user").
			WithHint("Either an account reference or a user reference is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// locateAccount loads the addressed account and, for user targets, the user.
func locateAccount(ctx context.Context, accounts account.Repository, users user.Repository, target AccountTarget) (*account.Account, *user.User, error) {
	if err := target.Validate(); err != nil {
		return nil, nil, err
	}

	if target.AccountRef != "" {
		acc, err := accounts.GetByReference(ctx, target.AccountRef)
		return acc, nil, err
	}

	u, err := users.GetByReference(ctx, target.UserRef)
	if err != nil {
		return nil, nil, err
	}
	acc, err := accounts.Get(ctx, u.AccountID)
	if err != nil {
		return nil, nil, err
	}
	return acc, u, nil
}
