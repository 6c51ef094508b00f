package stores

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the fail-open cache transport every store in this package
// sits on. When Redis is unconfigured or unreachable, every read degrades
// to a miss and every write to a no-op, so the database stays the source
// of truth and the process never refuses to start over a cache outage.
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient connects to redisURL, accepting either a redis:// URL or
// a bare host:port. An empty URL, or a failed ping, yields a client whose
// operations all pass through.
func NewRedisClient(redisURL string) (*RedisClient, error) {
	ctx := context.Background()
	if redisURL == "" {
		slog.Warn("Redis URL not configured, caching disabled")
		return &RedisClient{ctx: ctx}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis connection failed, caching disabled", "error", err)
		return &RedisClient{ctx: ctx}, nil
	}

	slog.Info("Redis connected successfully")
	return &RedisClient{client: client, ctx: ctx}, nil
}

// IsAvailable reports whether a live Redis connection is behind this
// client.
func (r *RedisClient) IsAvailable() bool {
	return r.client != nil
}

// Get returns the string value at key, with ok=false on a miss, an error,
// or an unavailable backend.
func (r *RedisClient) Get(key string) (string, bool) {
	if r.client == nil {
		return "", false
	}

	val, err := r.client.Get(r.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Debug("Redis GET error", "key", key, "error", err)
		return "", false
	}
	return val, true
}

// Set stores value at key for the given TTL.
func (r *RedisClient) Set(key, value string, expiration time.Duration) bool {
	if r.client == nil {
		return false
	}

	if err := r.client.Set(r.ctx, key, value, expiration).Err(); err != nil {
		slog.Debug("Redis SET error", "key", key, "error", err)
		return false
	}
	return true
}

// GetJSON reads key and unmarshals its value into dest. A miss, a backend
// error, and an undecodable value all report false; a stale entry that no
// longer matches the destination shape is treated as a miss rather than
// surfaced.
func (r *RedisClient) GetJSON(key string, dest any) bool {
	val, ok := r.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		slog.Debug("Redis JSON unmarshal error", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON marshals value and stores it at key for the given TTL.
func (r *RedisClient) SetJSON(key string, value any, expiration time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Debug("Redis JSON marshal error", "key", key, "error", err)
		return false
	}
	return r.Set(key, string(data), expiration)
}

// Delete drops key immediately, used by the caches here to invalidate an
// entry ahead of its TTL.
func (r *RedisClient) Delete(key string) bool {
	if r.client == nil {
		return false
	}

	if err := r.client.Del(r.ctx, key).Err(); err != nil {
		slog.Debug("Redis DEL error", "key", key, "error", err)
		return false
	}
	return true
}

// Close closes the underlying connection, if one was established.
func (r *RedisClient) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
