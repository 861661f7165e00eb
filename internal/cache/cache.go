package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/types"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get retrieves a value from the cache
	// Returns the value and a boolean indicating whether the key was found.
	// Remote backends return the stored JSON as a string; use Load to decode.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set adds a value to the cache with the specified expiration
	// If expiration is 0, the backend default applies
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes all keys with the given prefix
	DeleteByPrefix(ctx context.Context, prefix string)

	// Flush removes all items from the cache
	Flush(ctx context.Context)
}

// Predefined cache key prefixes for different entity types
const (
	PrefixPlan                 = "plan:v1:"
	PrefixPlanListing          = "plan_listing:v1:"
	PrefixAccountSubscriptions = "account_subscriptions:v1:"
)

// GenerateKey creates a cache key from a prefix and a set of parameters
// It joins all parameters with a colon and appends them to the prefix
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params)+1)
	parts[0] = prefix

	for i, param := range params {
		parts[i+1] = fmt.Sprintf("%v", param)
	}

	return strings.Join(parts, ":")
}

// Load reads key and converts the cached value to T. Values stored in
// process come back as is, values from a remote backend are JSON decoded.
func Load[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var zero T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return zero, false
	}

	switch v := raw.(type) {
	case T:
		return v, true
	case string:
		var out T
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return zero, false
		}
		return out, true
	case []byte:
		var out T
		if err := json.Unmarshal(v, &out); err != nil {
			return zero, false
		}
		return out, true
	}
	return zero, false
}

// NewCache returns the backend selected by cache.provider.
func NewCache(cfg *config.Configuration, log *logger.Logger) (Cache, error) {
	switch cfg.Cache.Provider {
	case types.CacheProviderRedis:
		log.Infow("using redis cache", "address", cfg.Cache.Redis.Address)
		return NewRedisCache(cfg, log)
	default:
		log.Infow("using in-memory cache", "ttl", cfg.Cache.TTL)
		return NewInMemoryCache(cfg.Cache.TTL), nil
	}
}
