package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediflux/assistant-api/interfaces"
	"github.com/mediflux/assistant-api/logging"
)

// Compile-time check
var _ interfaces.Cache = (*Redis)(nil)

// Redis is the shared TTL cache for multi-instance deployments. Expiry is
// delegated to Redis itself, so Purge has nothing to sweep.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the given Redis instance and verifies it answers.
func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := ping(context.Background(), func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

// Get returns the cached value when present. Backend errors are logged and
// reported as misses.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logging.Warn("Redis GET failed", "key", key, "error", err)
		return nil, false
	}
	return value, true
}

// Set stores value under key for ttl. Failures are logged, not surfaced.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logging.Warn("Redis SET failed", "key", key, "error", err)
	}
}

// Purge is a no-op: Redis expires keys itself.
func (r *Redis) Purge(_ context.Context) int { return 0 }

// Close releases the client connections.
func (r *Redis) Close() error { return r.client.Close() }
