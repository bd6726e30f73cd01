package lease

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanPageSize bounds how many keys a single SCAN iteration asks the
// server for during ScanByValue.
const scanPageSize = 100

// RedisStore implements Store on top of a Redis client.  SET NX EX gives
// the linearizable set-if-absent the hold manager relies on; sets and
// EXPIRE cover the group index.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.  The client's lifecycle
// is owned by the caller.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// SetIfAbsent performs SET key value NX EX ttl.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// Get returns the value of key, or "" when the key is absent.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Delete removes keys with a single DEL.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// AddToGroup adds keys to the group set and applies ttl to the set.
func (s *RedisStore) AddToGroup(ctx context.Context, group string, ttl time.Duration, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		members = append(members, k)
	}
	if err := s.client.SAdd(ctx, group, members...).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, group, ttl).Err()
}

// GroupMembers returns the members of the group set; SMEMBERS on a
// missing key yields an empty slice, which is exactly the semantics the
// callers want for expired holds.
func (s *RedisStore) GroupMembers(ctx context.Context, group string) ([]string, error) {
	return s.client.SMembers(ctx, group).Result()
}

// TTL reports the remaining lifetime of key.  Redis returns negative
// durations for missing keys (-2) and keys without expiry (-1); both are
// collapsed to zero so callers can treat the result as "seconds left".
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Expire resets the TTL of key; false means the key no longer exists.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.Expire(ctx, key, ttl).Result()
}

// ScanByValue iterates keys matching pattern in bounded pages and keeps
// those whose value equals value.  Keys that expire between the SCAN and
// the GET are simply skipped.
func (s *RedisStore) ScanByValue(ctx context.Context, pattern, value string) ([]string, error) {
	var (
		matches []string
		cursor  uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanPageSize).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			v, err := s.client.Get(ctx, key).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, err
			}
			if v == value {
				matches = append(matches, key)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return matches, nil
}
