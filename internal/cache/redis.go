package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 200

// RedisCache shares cached values between instances. Values are stored as
// JSON. Cache failures are logged and treated as misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

func NewRedisCache(cfg *config.Configuration, log *logger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Address,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisCacheFromClient(client, cfg.Cache.TTL, log), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return &RedisCache{client: client, ttl: ttl, logger: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	op := traceCacheOp(ctx, "redis", "get", map[string]interface{}{"key": key})

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			op.fail(err)
			c.logger.Warnw("redis get failed", "key", key, "error", err)
		}
		op.end(false)
		return nil, false
	}
	op.end(true)
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration <= 0 {
		expiration = c.ttl
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warnw("failed to encode cache value", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		c.logger.Warnw("redis set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warnw("redis delete failed", "key", key, "error", err)
	}
}

func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	op := traceCacheOp(ctx, "redis", "delete_by_prefix", map[string]interface{}{"prefix": prefix})
	defer op.end(false)

	iter := c.client.Scan(ctx, 0, prefix+"*", scanBatchSize).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		op.fail(err)
		c.logger.Warnw("redis scan failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		op.fail(err)
		c.logger.Warnw("redis delete failed", "prefix", prefix, "keys", len(keys), "error", err)
	}
}

func (c *RedisCache) Flush(ctx context.Context) {
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		c.logger.Warnw("redis flush failed", "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
