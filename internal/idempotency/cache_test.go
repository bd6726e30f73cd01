package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, 10*time.Minute)

	mock.ExpectGet("idem:tok-1").RedisNil()
	_, found, err := cache.Get(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachePutThenGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, 10*time.Minute)
	ctx := context.Background()
	payload := []byte(`{"order_id":"o-1"}`)

	mock.ExpectSet("idem:tok-1", payload, 10*time.Minute).SetVal("OK")
	require.NoError(t, cache.Put(ctx, "tok-1", payload))

	mock.ExpectGet("idem:tok-1").SetVal(string(payload))
	got, found, err := cache.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheDefaultsRetention(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, 0)

	mock.ExpectSet("idem:tok-1", []byte("x"), 10*time.Minute).SetVal("OK")
	require.NoError(t, cache.Put(context.Background(), "tok-1", []byte("x")))

	require.NoError(t, mock.ExpectationsWereMet())
}
