package cache

import (
	"context"
	"strings"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

const (
	DefaultExpiration = 30 * time.Minute
	// expired entries are swept on this period
	DefaultCleanupInterval = time.Hour
)

// InMemoryCache keeps values in process; each instance has its own copy.
type InMemoryCache struct {
	cache *goCache.Cache
}

// NewInMemoryCache creates a process-local cache. A zero ttl uses DefaultExpiration.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return &InMemoryCache{
		cache: goCache.New(ttl, DefaultCleanupInterval),
	}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	op := traceCacheOp(ctx, "memory", "get", map[string]interface{}{"key": key})
	v, ok := c.cache.Get(key)
	op.end(ok)
	return v, ok
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration <= 0 {
		expiration = goCache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

// DeleteByPrefix removes all keys with the given prefix
func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}
