package analytics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, mr *miniredis.Miniredis, opts ...CacheOption) *Cache {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute, opts...)
}

func TestBuildKeyCarriesVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := newTestCache(t, mr, WithKeyPrefix("test"))
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "kpis", "*")
	require.NoError(t, err)
	require.Equal(t, "test:v1:kpis:*", key)

	require.NoError(t, cache.Bump(ctx))
	key, err = cache.BuildKey(ctx, "kpis", "*")
	require.NoError(t, err)
	require.Equal(t, "test:v2:kpis:*", key)
}

func TestFetchJSONStoresLoaderResult(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := newTestCache(t, mr)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]int{"n": 7}, nil
	}

	var first, second map[string]int
	require.NoError(t, cache.FetchJSON(ctx, "k", &first, loader))
	require.NoError(t, cache.FetchJSON(ctx, "k", &second, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, 7, second["n"])
	require.True(t, mr.Exists("k"))
}

func TestListenerFollowsRemoteBumps(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := newTestCache(t, mr, WithChannel("bumps"))
	remote := newTestCache(t, mr, WithChannel("bumps"))
	require.NoError(t, local.ListenForInvalidation(ctx))

	ver, err := local.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	// The memo answers without consulting Redis.
	require.NoError(t, mr.Set(local.versionKey(), "41"))
	ver, err = local.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	require.NoError(t, remote.Bump(ctx))
	require.Eventually(t, func() bool {
		v, err := local.Version(ctx)
		return err == nil && v == 42
	}, time.Second, 10*time.Millisecond)
}

func TestNilCacheIsPassThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	key, err := cache.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, "a:b", key)
	require.NoError(t, cache.Bump(ctx))
	require.NoError(t, cache.ListenForInvalidation(ctx))

	var out []int
	require.NoError(t, cache.FetchJSON(ctx, key, &out, func(context.Context) (any, error) { return []int{1}, nil }))
	require.Equal(t, []int{1}, out)
}
