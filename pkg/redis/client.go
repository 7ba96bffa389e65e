// Package redis wraps go-redis/v9 for the score cache: JSON values with a
// TTL and prefix invalidation.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/resilience"
	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint for SCAN and the size of each UNLINK.
const scanBatch = 200

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING,
// retrying with backoff until ctx expires or the attempts run out. Command
// timeouts are short because every caller treats Redis as optional.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	err := resilience.Retry(ctx, "redis connect", resilience.RetryConfig{MaxAttempts: 3}, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis at %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// GetJSON decodes the value stored at key into dst. It reports false when
// the key does not exist.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decoding cached value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value as JSON and stores it with the given TTL.
func (c *Client) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache value %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// FlushByPattern removes every key matching the glob pattern and returns how
// many were removed. Keys are collected one SCAN page at a time and released
// with UNLINK so the server frees memory off the main thread.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		removed int64
		cursor  uint64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("scanning %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			removed += n
			if err != nil {
				return removed, fmt.Errorf("unlinking %d keys: %w", len(keys), err)
			}
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping sends a PING to Redis and returns any error.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
