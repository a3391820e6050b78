package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "review_monitor/internal/adapters/redis"
	"review_monitor/internal/domain"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestCache_SetGetDel(t *testing.T) {
	mr, c := newClient(t)
	cache := redisad.NewCache(c, "rm:")
	ctx := context.Background()

	var dst map[string]int
	ok, err := cache.Get(ctx, "k", &dst)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", map[string]int{"a": 1}, 60))
	assert.True(t, mr.Exists("rm:k"))

	ok, err = cache.Get(ctx, "k", &dst)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, dst["a"])

	mr.FastForward(61 * time.Second)
	ok, _ = cache.Get(ctx, "k", &dst)
	assert.False(t, ok, "expired")

	require.NoError(t, cache.Set(ctx, "k", 1, 60))
	require.NoError(t, cache.Del(ctx, "k"))
	assert.False(t, mr.Exists("rm:k"))
}

func TestRunLock_ExclusiveAndOwnedRelease(t *testing.T) {
	mr, c := newClient(t)
	ctx := context.Background()
	a := redisad.NewRunLock(c, "rm:lock:ingest")
	b := redisad.NewRunLock(c, "rm:lock:ingest")

	ok, err := a.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// b does not own the lock, so its release is a no-op
	require.NoError(t, b.Release(ctx))
	assert.True(t, mr.Exists("rm:lock:ingest"))

	require.NoError(t, a.Release(ctx))
	ok, err = b.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolutionLog_NewestFirstAndCapped(t *testing.T) {
	_, c := newClient(t)
	ctx := context.Background()
	l := redisad.NewResolutionLog(c, "rm:resolutions", 2)

	for _, h := range []string{"h1", "h2", "h3"} {
		require.NoError(t, l.Append(ctx, domain.ResolutionEvent{ID: "id-" + h, Hash: h, ResolvedBy: "ops"}))
	}
	evs, err := l.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "h3", evs[0].Hash)
	assert.Equal(t, "h2", evs[1].Hash)
}
