package user

import "context"

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByReference(ctx context.Context, reference string) (*User, error)
	ListByAccount(ctx context.Context, accountID string) ([]*User, error)
}
