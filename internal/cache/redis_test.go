package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	srv := miniredis.RunT(t)
	return NewRedis(srv.Addr(), "", 0)
}

func TestRedisCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "availability:2026-03-02", []byte(`{"bookedSlots":[]}`), time.Minute))

	val, ok, err := c.Get(ctx, "availability:2026-03-02")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"bookedSlots":[]}`, string(val))
}

func TestRedisCacheDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheDeletePrefix(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "availability:2026-03-02", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "availability:2026-03-09", []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, "other:key", []byte("c"), time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "availability:"))

	_, ok, err := c.Get(ctx, "availability:2026-03-02")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.Get(ctx, "availability:2026-03-09")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, "other:key")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoopCache(t *testing.T) {
	c := NewNoop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.DeletePrefix(ctx, "k"))
}
