package internal

import (
	"context"
	"strings"

	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/user"
	ierr "github.com/flexprice/subscriptions/internal/errors"
)

// AccountInput describes an account created from the command line.
type AccountInput struct {
	Reference   string
	Name        string
	Email       string
	VATNumber   string
	CountryCode string
}

// CreateAccount stores a new account with no subscriptions.
func CreateAccount(ctx context.Context, accounts account.Repository, in AccountInput) (*account.Account, error) {
	if in.Reference == "" {
		return nil, ierr.NewError("reference is required").
			WithHint("An account reference is required").
			Mark(ierr.ErrValidation)
	}
	if in.Name == "" {
		in.Name = in.Reference
	}

	acc := account.NewAccount(in.Reference, in.Name, in.Email)
	acc.VATNumber = in.VATNumber
	acc.CountryCode = strings.ToUpper(in.CountryCode)

	if err := accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// AddUser attaches a new user to the account with the given reference.
func AddUser(ctx context.Context, accounts account.Repository, users user.Repository, reference, accountRef, email string) (*user.User, error) {
	if reference == "" {
		return nil, ierr.NewError("reference is required").
			WithHint("A user reference is required").
			Mark(ierr.ErrValidation)
	}

	acc, err := accounts.GetByReference(ctx, accountRef)
	if err != nil {
		return nil, err
	}

	u := user.NewUser(reference, acc.ID, email)
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
