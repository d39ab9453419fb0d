// Package cache provides the TTL response cache behind the orchestrator:
// an in-memory implementation by default, a Redis implementation when an
// address is configured. A miss and an internal failure look the same to
// callers; the cache logs its own problems.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
	"github.com/mediflux/assistant-api/logging"
)

// keyPrefix namespaces every cache key so a shared Redis instance stays
// readable.
const keyPrefix = "assistant"

// Key builds the cache key for one source call: the source name plus the
// normalized query, so accent or case variants of the same query share an
// entry.
func Key(source, query string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, source, entities.Normalize(query))
}

// New selects the cache implementation from config: Redis when an address
// is set and reachable, in-memory otherwise.
func New(redisAddr, redisPassword string, redisDB int) interfaces.Cache {
	if redisAddr == "" {
		return NewMemory()
	}
	r, err := NewRedis(redisAddr, redisPassword, redisDB)
	if err != nil {
		logging.Warn("Redis cache unavailable, using in-memory cache", "addr", redisAddr, "error", err)
		return NewMemory()
	}
	logging.Info("Using Redis response cache", "addr", redisAddr)
	return r
}

// pingTimeout bounds the startup reachability check.
const pingTimeout = 2 * time.Second

func ping(ctx context.Context, f func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return f(ctx)
}
