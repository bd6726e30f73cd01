package lease

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockKeyRoundTrip(t *testing.T) {
	key := LockKey("ev-1", "R2-S7")
	assert.Equal(t, "hold:ev-1:R2-S7", key)

	eventID, seatID, ok := SplitLockKey(key)
	require.True(t, ok)
	assert.Equal(t, "ev-1", eventID)
	assert.Equal(t, "R2-S7", seatID)
}

func TestSplitLockKeyRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "hold:", "hold:ev-1", "hold:ev-1:", "holdset:abc", "other:ev:seat"} {
		_, _, ok := SplitLockKey(key)
		assert.False(t, ok, "key %q should not parse", key)
	}
}

func TestRedisStoreSetIfAbsent(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)
	ctx := context.Background()

	mock.ExpectSetNX("hold:ev-1:R1-S1", "h-1", 5*time.Minute).SetVal(true)
	ok, err := store.SetIfAbsent(ctx, "hold:ev-1:R1-S1", "h-1", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second acquisition of the same key loses.
	mock.ExpectSetNX("hold:ev-1:R1-S1", "h-2", 5*time.Minute).SetVal(false)
	ok, err = store.SetIfAbsent(ctx, "hold:ev-1:R1-S1", "h-2", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreGetMissingKey(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	mock.ExpectGet("hold:ev-1:R1-S1").RedisNil()
	v, err := store.Get(context.Background(), "hold:ev-1:R1-S1")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreGroupLifecycle(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)
	ctx := context.Background()
	group := GroupKey("h-1")
	keys := []string{"hold:ev-1:R1-S1", "hold:ev-1:R1-S2"}

	mock.ExpectSAdd(group, keys[0], keys[1]).SetVal(2)
	mock.ExpectExpire(group, 5*time.Minute).SetVal(true)
	require.NoError(t, store.AddToGroup(ctx, group, 5*time.Minute, keys...))

	mock.ExpectSMembers(group).SetVal(keys)
	members, err := store.GroupMembers(ctx, group)
	require.NoError(t, err)
	assert.ElementsMatch(t, keys, members)

	mock.ExpectDel(keys[0], keys[1]).SetVal(2)
	require.NoError(t, store.Delete(ctx, keys...))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreTTLClampsNegative(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)
	ctx := context.Background()

	// -2 means the key is gone; callers should see zero.
	mock.ExpectTTL("hold:ev-1:R1-S1").SetVal(-2 * time.Second)
	d, err := store.TTL(ctx, "hold:ev-1:R1-S1")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)

	mock.ExpectTTL("hold:ev-1:R1-S2").SetVal(90 * time.Second)
	d, err = store.TTL(ctx, "hold:ev-1:R1-S2")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreScanByValue(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)
	ctx := context.Background()

	mock.ExpectScan(0, "hold:*", scanPageSize).SetVal(
		[]string{"hold:ev-1:R1-S1", "hold:ev-1:R1-S2", "hold:ev-1:R1-S3"}, 0)
	mock.ExpectGet("hold:ev-1:R1-S1").SetVal("h-1")
	mock.ExpectGet("hold:ev-1:R1-S2").SetVal("h-2")
	mock.ExpectGet("hold:ev-1:R1-S3").RedisNil() // expired between SCAN and GET

	matches, err := store.ScanByValue(ctx, "hold:*", "h-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hold:ev-1:R1-S1"}, matches)

	require.NoError(t, mock.ExpectationsWereMet())
}
