package stores

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(mr.Addr())
	require.NoError(t, err)
	require.True(t, client.IsAvailable())
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisClientFailsOpenWhenUnconfigured(t *testing.T) {
	client, err := NewRedisClient("")
	require.NoError(t, err)
	require.False(t, client.IsAvailable())

	_, ok := client.Get("anything")
	require.False(t, ok)
	require.False(t, client.Set("anything", "v", time.Minute))
	require.False(t, client.Delete("anything"))
	require.NoError(t, client.Close())
}

func TestRedisClientSetGetDelete(t *testing.T) {
	_, client := testRedis(t)

	require.True(t, client.Set("k", "v", time.Minute))
	got, ok := client.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)

	require.True(t, client.Delete("k"))
	_, ok = client.Get("k")
	require.False(t, ok)
}

func TestRedisClientJSONRoundTrip(t *testing.T) {
	_, client := testRedis(t)

	type entry struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.True(t, client.SetJSON("j", entry{Name: "pro", Count: 3}, time.Minute))

	var got entry
	require.True(t, client.GetJSON("j", &got))
	require.Equal(t, entry{Name: "pro", Count: 3}, got)

	// An entry that no longer decodes reads as a miss, not an error.
	require.True(t, client.Set("j", "{not json", time.Minute))
	require.False(t, client.GetJSON("j", &got))
}

func TestOfferingsCacheRoundTripAndInvalidate(t *testing.T) {
	_, client := testRedis(t)
	cache := NewOfferingsCache(client, time.Minute)

	type offering struct {
		StoreProductID string   `json:"store_product_id"`
		Entitlements   []string `json:"entitlements"`
	}
	stored := []offering{{StoreProductID: "com.ex.monthly", Entitlements: []string{"pro"}}}

	var got []offering
	require.False(t, cache.Get(7, &got))

	cache.Set(7, stored)
	require.True(t, cache.Get(7, &got))
	require.Equal(t, stored, got)

	// Another app's entry is untouched by an invalidation.
	cache.Set(8, stored)
	cache.Invalidate(7)
	require.False(t, cache.Get(7, &got))
	require.True(t, cache.Get(8, &got))
}

func TestOfferingsCacheExpiresWithTTL(t *testing.T) {
	mr, client := testRedis(t)
	cache := NewOfferingsCache(client, time.Second)

	cache.Set(7, []string{"anything"})
	mr.FastForward(2 * time.Second)

	var got []string
	require.False(t, cache.Get(7, &got))
}

func TestAPIKeyCacheRoundTripAndInvalidate(t *testing.T) {
	_, client := testRedis(t)
	cache := NewAPIKeyCache(client, time.Minute)

	_, ok := cache.Get("hash-1")
	require.False(t, ok)

	cache.Set("hash-1", 42)
	appID, ok := cache.Get("hash-1")
	require.True(t, ok)
	require.EqualValues(t, 42, appID)

	cache.Invalidate("hash-1")
	_, ok = cache.Get("hash-1")
	require.False(t, ok)
}
