package stores

import (
	"time"

	"opencat/pkg/config"

	"log/slog"
)

// StoresCollection contains all Redis-backed cache stores. Redis is
// optional; every store here degrades to
// a pass-through cache miss when it is unavailable.
type StoresCollection struct {
	Redis     *RedisClient
	APIKey    *APIKeyCache
	Offerings *OfferingsCache
}

func InitializeStores(cfg config.Environment) (*StoresCollection, error) {
	redis, err := NewRedisClient(cfg.RedisURL)
	if err != nil {
		slog.Warn("Redis initialization failed, caching disabled", "error", err)
	}

	stores := &StoresCollection{
		Redis:     redis,
		APIKey:    NewAPIKeyCache(redis, time.Duration(cfg.APIKeyCacheTTLSeconds)*time.Second),
		Offerings: NewOfferingsCache(redis, time.Duration(cfg.OfferingsCacheTTLSeconds)*time.Second),
	}

	if stores.IsRedisAvailable() {
		slog.Info("Stores initialized with Redis caching enabled")
	} else {
		slog.Info("Stores initialized in pass-through mode (no caching)")
	}

	return stores, nil
}

func (s *StoresCollection) Close() error {
	if s.Redis != nil {
		return s.Redis.Close()
	}
	return nil
}

func (s *StoresCollection) IsRedisAvailable() bool {
	return s.Redis != nil && s.Redis.IsAvailable()
}
