package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPlan struct {
	Reference string `json:"reference"`
	Position  int    `json:"position"`
}

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCacheFromClient(client, time.Minute, logger.NewNoopLogger()), mr
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "plan:v1::pro:month", GenerateKey(PrefixPlan, "pro", "month"))
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute)

	c.Set(ctx, GenerateKey(PrefixAccountSubscriptions, "acme"), []string{"a"}, 0)
	c.Set(ctx, GenerateKey(PrefixAccountSubscriptions, "acme", "sub_1"), "b", 0)
	c.Set(ctx, GenerateKey(PrefixPlan, "pro"), cachedPlan{Reference: "pro"}, 0)

	got, ok := Load[cachedPlan](ctx, c, GenerateKey(PrefixPlan, "pro"))
	require.True(t, ok)
	assert.Equal(t, "pro", got.Reference)

	c.DeleteByPrefix(ctx, GenerateKey(PrefixAccountSubscriptions, "acme"))

	_, ok = c.Get(ctx, GenerateKey(PrefixAccountSubscriptions, "acme"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, GenerateKey(PrefixAccountSubscriptions, "acme", "sub_1"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, GenerateKey(PrefixPlan, "pro"))
	assert.True(t, ok)

	c.Flush(ctx)
	_, ok = c.Get(ctx, GenerateKey(PrefixPlan, "pro"))
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	key := GenerateKey(PrefixPlan, "pro")
	c.Set(ctx, key, cachedPlan{Reference: "pro", Position: 2}, 0)

	got, ok := Load[cachedPlan](ctx, c, key)
	require.True(t, ok)
	assert.Equal(t, cachedPlan{Reference: "pro", Position: 2}, got)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok, "entry should expire with the default ttl")
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	c.Set(ctx, GenerateKey(PrefixAccountSubscriptions, "acme"), []int{1}, 0)
	c.Set(ctx, GenerateKey(PrefixAccountSubscriptions, "acme", "sub_1"), 1, 0)
	c.Set(ctx, GenerateKey(PrefixAccountSubscriptions, "other"), 1, 0)

	c.DeleteByPrefix(ctx, GenerateKey(PrefixAccountSubscriptions, "acme"))

	assert.False(t, mr.Exists(GenerateKey(PrefixAccountSubscriptions, "acme")))
	assert.False(t, mr.Exists(GenerateKey(PrefixAccountSubscriptions, "acme", "sub_1")))
	assert.True(t, mr.Exists(GenerateKey(PrefixAccountSubscriptions, "other")))
}

func TestRedisCache_UnavailableIsMiss(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	c := NewRedisCacheFromClient(client, time.Minute, logger.NewNoopLogger())

	c.Set(ctx, "k", "v", 0)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
