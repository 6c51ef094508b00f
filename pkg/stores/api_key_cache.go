package stores

import (
	"fmt"
	"time"
)

// APIKeyCache is a short-lived lookup cache; it must respect revocations
// within seconds. It caches the API-key-hash -> app_id mapping so a hot path
// doesn't hit Postgres on every authenticated request; it never caches a
// negative/revoked lookup, so a revoke always takes effect on its next
// check against storage rather than waiting out a cached miss.
type APIKeyCache struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewAPIKeyCache(redis *RedisClient, ttl time.Duration) *APIKeyCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &APIKeyCache{redis: redis, ttl: ttl}
}

func keyAPIKeyAppID(keyHash string) string {
	return fmt.Sprintf("apikey:app_id:%s", keyHash)
}

// Get returns the cached app id for a key hash, if present.
func (c *APIKeyCache) Get(keyHash string) (uint, bool) {
	if c.redis == nil || !c.redis.IsAvailable() {
		return 0, false
	}
	val, ok := c.redis.Get(keyAPIKeyAppID(keyHash))
	if !ok {
		return 0, false
	}
	var appID uint
	if _, err := fmt.Sscanf(val, "%d", &appID); err != nil {
		return 0, false
	}
	return appID, true
}

// Set caches the app id a key hash resolves to for the configured TTL.
func (c *APIKeyCache) Set(keyHash string, appID uint) {
	if c.redis == nil || !c.redis.IsAvailable() {
		return
	}
	c.redis.Set(keyAPIKeyAppID(keyHash), fmt.Sprintf("%d", appID), c.ttl)
}

// Invalidate drops a cached entry immediately, used by key revocation so a
// revoke never waits out the TTL.
func (c *APIKeyCache) Invalidate(keyHash string) {
	if c.redis == nil {
		return
	}
	c.redis.Delete(keyAPIKeyAppID(keyHash))
}
