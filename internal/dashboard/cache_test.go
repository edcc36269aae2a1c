package dashboard

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	return cache, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestFetchJSONLoadsOnce(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return Summary{TotalUsers: 9}, nil
	}

	key, err := cache.BuildKey(ctx, keyStatistics(1)...)
	require.NoError(t, err)

	var first, second Summary
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	require.Equal(t, 1, calls)
	require.Equal(t, int64(9), first.TotalUsers)
	require.Equal(t, first, second)
}

func TestBumpChangesKeys(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, keyStatistics(1)...)
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, keyStatistics(1)...)
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestBumpInvalidatesCachedPayload(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return Summary{TotalUsers: int64(calls)}, nil
	}

	key, err := cache.BuildKey(ctx, keyStatistics(5)...)
	require.NoError(t, err)
	var got Summary
	require.NoError(t, cache.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, int64(1), got.TotalUsers)

	require.NoError(t, cache.Bump(ctx))

	key, err = cache.BuildKey(ctx, keyStatistics(5)...)
	require.NoError(t, err)
	require.NoError(t, cache.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, int64(2), got.TotalUsers)
	require.Equal(t, 2, calls)
}

func TestNilCacheFallsThroughToLoader(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	var got Summary
	err := cache.FetchJSON(ctx, "ignored", &got, func(context.Context) (interface{}, error) {
		return Summary{TotalUsers: 3}, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), got.TotalUsers)
}
