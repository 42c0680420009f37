package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/internal/infrastructure/cache"
)

func newStore(t *testing.T, ttl time.Duration) (*cache.IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewIdempotencyStore(client, ttl), mr
}

func TestIdempotencyStore_AcquireOnce(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t, time.Hour)

	ok, err := store.Acquire(ctx, "company-1:POST /invoices/:id/send", "key-1", "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "company-1:POST /invoices/:id/send", "key-1", "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	// Otra empresa con la misma llave no colisiona.
	ok, err = store.Acquire(ctx, "company-2:POST /invoices/:id/send", "key-1", "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, time.Hour, mr.TTL("idem:company-1:POST /invoices/:id/send:key-1"))
}

func TestIdempotencyStore_Expires(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t, time.Minute)

	ok, err := store.Acquire(ctx, "s", "k", "")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = store.Acquire(ctx, "s", "k", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyStore_Release(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t, 0)

	ok, err := store.Acquire(ctx, "s", "k", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, "s", "k"))

	ok, err = store.Acquire(ctx, "s", "k", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := cache.New(context.Background(), cache.Options{Addr: addr})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = cache.New(context.Background(), cache.Options{Addr: addr})
	assert.Error(t, err)
}
