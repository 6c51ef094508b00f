package stores

import (
	"fmt"
	"time"
)

// OfferingsCache caches the merged product+entitlement projection served
// by GET /v1/apps/{id}/offerings. Paywall rendering hits that route on
// every client launch while the underlying catalog changes rarely, so
// the projection is cached per app and dropped whenever a catalog write
// (product create, entitlement link, sync) lands.
type OfferingsCache struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewOfferingsCache(redis *RedisClient, ttl time.Duration) *OfferingsCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &OfferingsCache{redis: redis, ttl: ttl}
}

func keyOfferings(appID uint) string {
	return fmt.Sprintf("offerings:app:%d", appID)
}

// Get unmarshals the cached projection for appID into dest, reporting
// whether a usable entry was present.
func (c *OfferingsCache) Get(appID uint, dest any) bool {
	if c.redis == nil || !c.redis.IsAvailable() {
		return false
	}
	return c.redis.GetJSON(keyOfferings(appID), dest)
}

// Set stores the projection for appID for the configured TTL.
func (c *OfferingsCache) Set(appID uint, value any) {
	if c.redis == nil || !c.redis.IsAvailable() {
		return
	}
	c.redis.SetJSON(keyOfferings(appID), value, c.ttl)
}

// Invalidate drops the cached projection for appID, called on every
// catalog write so readers never see a stale paywall past the write.
func (c *OfferingsCache) Invalidate(appID uint) {
	if c.redis == nil {
		return
	}
	c.redis.Delete(keyOfferings(appID))
}
