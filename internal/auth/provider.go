package auth

import (
	"context"

	"github.com/flexprice/subscriptions/internal/config"
)

// RoleAdmin may act on any user's subscriptions.
const RoleAdmin = "admin"

// Claims are the identity fields read from a validated token.
type Claims struct {
	UserID string
	Role   string
}

func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// CanAccessUser reports whether the holder may act on the user identified by
// reference.
func (c *Claims) CanAccessUser(reference string) bool {
	if c == nil {
		return false
	}
	return c.IsAdmin() || (c.UserID != "" && c.UserID == reference)
}

type Provider interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

func NewProvider(cfg *config.Configuration) Provider {
	return NewJWTAuth(cfg)
}
