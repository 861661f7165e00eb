package user

import (
	"time"

	"github.com/flexprice/subscriptions/internal/types"
)

// User belongs to exactly one account. User routes resolve the account
// through AccountID.
type User struct {
	ID        string    `db:"id" json:"id"`
	Reference string    `db:"reference" json:"reference"`
	AccountID string    `db:"account_id" json:"account_id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func NewUser(reference, accountID, email string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER),
		Reference: reference,
		AccountID: accountID,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
