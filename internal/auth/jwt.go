package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/golang-jwt/jwt/v4"
)

const (
	claimUserID = "uid"
	claimRole   = "role"
)

type jwtAuth struct {
	AuthConfig config.AuthConfig
}

func NewJWTAuth(cfg *config.Configuration) *jwtAuth {
	return &jwtAuth{
		AuthConfig: cfg.Auth,
	}
}

func (j *jwtAuth) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrPermissionDenied)
		}
		return []byte(j.AuthConfig.Secret), nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Token parse error").
			Mark(ierr.ErrPermissionDenied)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrPermissionDenied)
	}

	userID, _ := claims[claimUserID].(string)
	role, _ := claims[claimRole].(string)
	if userID == "" && role == "" {
		return nil, ierr.NewError("token carries no identity").
			WithHint("Invalid token claims").
			Mark(ierr.ErrPermissionDenied)
	}

	return &Claims{UserID: userID, Role: role}, nil
}

// GenerateToken signs a token for userID. A zero ttl produces a token
// without expiry.
func GenerateToken(secret, userID, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		claimUserID: userID,
		"iat":       time.Now().Unix(),
	}
	if role != "" {
		claims[claimRole] = role
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to sign token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}
