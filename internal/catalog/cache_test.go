package catalog_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/catalogo-api/internal/catalog"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheRoundTripAndPurge(t *testing.T) {
	mr, client := newRedis(t)
	cache := catalog.NewCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, "catalog:a", map[string]int{"n": 1}))
	require.NoError(t, cache.SetJSON(ctx, "catalog:b", map[string]int{"n": 2}))
	require.NoError(t, client.Set(ctx, "lists:keep", "x", 0).Err())

	var got map[string]int
	ok, err := cache.GetJSON(ctx, "catalog:a", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, got["n"])
	require.Equal(t, time.Minute, mr.TTL("catalog:a"))

	ok, err = cache.GetJSON(ctx, "catalog:missing", &got)
	require.NoError(t, err)
	require.False(t, ok)

	deleted, err := cache.Purge(ctx, catalog.CacheKeyPattern)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)
	require.False(t, mr.Exists("catalog:a"))
	require.True(t, mr.Exists("lists:keep"))
}

func TestNilCacheIsMiss(t *testing.T) {
	var cache *catalog.Cache
	ok, err := cache.GetJSON(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, cache.SetJSON(context.Background(), "k", 1))
}

func TestServiceCachesProductRecords(t *testing.T) {
	mr, client := newRedis(t)
	queries := newFakeCatalogQueries()
	svc := newTestService(t, queries, catalog.NewCache(client, time.Minute))
	ctx := context.Background()

	first, err := svc.GetProductDetail(ctx, 1)
	require.NoError(t, err)
	second, err := svc.GetProductDetail(ctx, 1)
	require.NoError(t, err)

	require.Equal(t, 1, queries.getCalls)
	require.True(t, mr.Exists("catalog:products:detail:1"))
	require.True(t, first.Pricing.EffectivePrice.Equal(second.Pricing.EffectivePrice))
	require.True(t, second.Pricing.EffectivePrice.Equal(decimal.NewFromInt(800)))

	_, err = svc.QuoteProduct(ctx, 1)
	require.NoError(t, err)
	require.True(t, mr.Exists("catalog:plans:product:1"))

	q, err := svc.QuoteProduct(ctx, 1)
	require.NoError(t, err)
	require.Len(t, q.Result.Plans, 2)
	require.Equal(t, "Heladeras", q.Category)
	require.Equal(t, "Gafa", q.Brand)
}
