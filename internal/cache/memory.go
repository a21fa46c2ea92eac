package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache with the same TTL semantics as
// the Redis one. Used in tests and as a standalone-mode fallback.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	entry    Entry
	deadline time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Get(_ context.Context, code string) (*Entry, bool) {
	m.mu.RLock()
	e, ok := m.entries[code]
	m.mu.RUnlock()
	if !ok || time.Now().After(e.deadline) {
		return nil, false
	}
	entry := e.entry
	return &entry, true
}

func (m *MemoryCache) Set(_ context.Context, code string, entry *Entry) error {
	m.mu.Lock()
	m.entries[code] = memoryEntry{entry: *entry, deadline: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	delete(m.entries, code)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Healthy(context.Context) bool { return true }

func (m *MemoryCache) Close() error { return nil }
