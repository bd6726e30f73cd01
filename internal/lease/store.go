// Package lease defines the TTL-capable key/value store that backs seat
// holds.  A hold exists purely as a set of lease entries: one exclusivity
// lock per seat plus a group index listing the lock keys, all sharing one
// expiry.  The store exposes only the atomic primitives the hold manager
// needs; it contains no booking logic of its own.
package lease

import (
	"context"
	"strings"
	"time"
)

// Key layout in the store.  Lock keys carry the owning hold id as their
// value; the group key is a set of lock keys.
const (
	lockKeyPrefix  = "hold:"
	groupKeyPrefix = "holdset:"
)

// LockKey builds the per-seat lock key for an event/seat pair.
func LockKey(eventID, seatID string) string {
	return lockKeyPrefix + eventID + ":" + seatID
}

// GroupKey builds the group-index key for a hold.
func GroupKey(holdID string) string {
	return groupKeyPrefix + holdID
}

// SplitLockKey decomposes a lock key into its event and seat ids.  The
// second return value is false when the key does not have the expected
// "hold:<event>:<seat>" shape.  Seat ids never contain a colon, so the
// three-way split is unambiguous.
func SplitLockKey(key string) (eventID, seatID string, ok bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[0]+":" != lockKeyPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// Store is the minimal contract the hold manager and purchase
// coordinator require from the lease store.  Every operation must be
// atomic at the store: SetIfAbsent in particular is the only mechanism
// by which seat exclusivity is enforced, so it must be a single
// compare-and-set, never a read followed by a write.
type Store interface {
	// SetIfAbsent atomically creates key=value with the given TTL and
	// reports whether the key was created.  An existing key is left
	// untouched and false is returned.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the current value of key, or "" when the key does not
	// exist or has expired.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes the given keys.  Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// AddToGroup registers keys under the named group and applies ttl to
	// the group itself.
	AddToGroup(ctx context.Context, group string, ttl time.Duration, keys ...string) error

	// GroupMembers returns the keys registered under group.  An unknown
	// or expired group yields an empty slice, not an error.
	GroupMembers(ctx context.Context, group string) ([]string, error)

	// TTL returns the remaining lifetime of key, or 0 when the key does
	// not exist or carries no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Expire resets the TTL of key and reports whether the key existed.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// ScanByValue walks keys matching pattern and returns those whose
	// value equals the given value.  This is the bounded O(n) recovery
	// path used when a hold's group index expired ahead of its member
	// locks; it is acceptable only at small inventory scale.
	ScanByValue(ctx context.Context, pattern, value string) ([]string, error)
}
