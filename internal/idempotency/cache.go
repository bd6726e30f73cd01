// Package idempotency provides a bounded-retention cache mapping a
// caller-supplied token to a previously produced purchase response.
// Tokens are assumed globally unique per logical purchase attempt; the
// last writer for a token wins, no merging or versioning.
package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idem:"

// Cache stores serialized responses in Redis under idem:<token> with a
// fixed retention window.
type Cache struct {
	client    *redis.Client
	retention time.Duration
}

// NewCache builds a Cache with the given retention window.  A zero or
// negative retention falls back to ten minutes, matching the window the
// purchase flow was designed around.
func NewCache(client *redis.Client, retention time.Duration) *Cache {
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	return &Cache{client: client, retention: retention}
}

// Get returns the response stored under token.  The boolean reports
// whether a record was found; an expired or unknown token is not an
// error.
func (c *Cache) Get(ctx context.Context, token string) ([]byte, bool, error) {
	v, err := c.client.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Put stores response under token for the cache's retention window,
// overwriting any previous value.
func (c *Cache) Put(ctx context.Context, token string, response []byte) error {
	return c.client.Set(ctx, keyPrefix+token, response, c.retention).Err()
}
