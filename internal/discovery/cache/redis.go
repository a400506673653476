// Package cache provides the Redis-backed layer for discovery search
// results. The cache is a read accelerator only; discovery always works
// without it and every entry expires on its TTL.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const searchKeyPrefix = "discovery:search:"

// DefaultTTL bounds how stale a cached search may be. Donor availability and
// cooldowns move slowly; a minute of staleness is acceptable.
const DefaultTTL = time.Minute

// Redis caches serialized search results keyed by the search parameters.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Get returns the cached payload for key. A missing key is not an error.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, searchKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Set stores the payload under key with the configured TTL.
func (c *Redis) Set(ctx context.Context, key string, payload []byte) error {
	return c.client.Set(ctx, searchKeyPrefix+key, payload, c.ttl).Err()
}
