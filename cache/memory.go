package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mediflux/assistant-api/interfaces"
)

// Compile-time check
var _ interfaces.Cache = (*Memory)(nil)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the in-process TTL cache. Expired entries are dropped lazily on
// read and swept by Purge, which the scheduler runs periodically.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Get returns the cached value when present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

// Purge removes every expired entry and returns how many were dropped.
func (m *Memory) Purge(_ context.Context) int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live plus not-yet-swept entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for the in-memory cache.
func (m *Memory) Close() error { return nil }
