package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/config"
)

// PayloadCache stores the last raw backend payload
type PayloadCache interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Set(ctx context.Context, payload []byte) error
	Invalidate(ctx context.Context) error
}

// NewRedisClient creates a Redis client from configuration
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
}

// RedisCache keeps the payload under a single key with a TTL
type RedisCache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a new Redis-backed payload cache
func NewRedisCache(client redis.Cmdable, key string, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.Named("cache"),
	}
}

// Get returns the cached payload; a miss is (nil, false, nil)
func (c *RedisCache) Get(ctx context.Context) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read cached payload")
	}
	return data, true, nil
}

// Set stores the payload for the configured TTL
func (c *RedisCache) Set(ctx context.Context, payload []byte) error {
	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to cache payload")
	}
	c.logger.Debug("Cached payload", zap.Int("bytes", len(payload)), zap.Duration("ttl", c.ttl))
	return nil
}

// Invalidate removes the cached payload
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return errors.Wrap(err, "failed to invalidate cached payload")
	}
	return nil
}

// Noop is used when Redis is disabled: every read misses
type Noop struct{}

func (Noop) Get(context.Context) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, []byte) error { return nil }

func (Noop) Invalidate(context.Context) error { return nil }
