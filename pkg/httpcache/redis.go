package httpcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RedisCache is a Cacher backed by Redis, for sharing responses between
// processes or hosts.
type RedisCache struct {
	client *redis.Client
	group  singleflight.Group
	prefix string
	ttl    time.Duration
}

// NewRedis connects to Redis at addr and pings it.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCache{client: client, prefix: "instainfo:", ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *RedisCache) TTL() time.Duration {
	return c.ttl
}

// GetSet returns the cached value for key, calling fetch on a miss. Concurrent
// misses for the same key in this process share one fetch. Fetch errors are
// returned and not stored.
func (c *RedisCache) GetSet(
	ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration,
) ([]byte, error) {
	k := c.prefix + key

	data, err := c.client.Get(ctx, k).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	expiry := c.ttl
	if len(ttl) > 0 {
		expiry = ttl[0]
	}

	v, err, _ := c.group.Do(k, func() (any, error) {
		body, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, k, body, expiry).Err(); err != nil {
			return nil, fmt.Errorf("redis set: %w", err)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	body, _ := v.([]byte) //nolint:errcheck // group only stores []byte
	return body, nil
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
