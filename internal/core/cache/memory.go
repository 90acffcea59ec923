package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a process-local Cache with lazy expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nowFn   func() time.Time
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		nowFn:   time.Now,
	}
}

// Get returns a copy of the stored payload if it has not expired.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !c.nowFn().Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check: a writer may have refreshed the entry meanwhile.
		if current, still := c.entries[key]; still && !c.nowFn().Before(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	out := make([]byte, len(entry.payload))
	copy(out, entry.payload)
	return out, true, nil
}

// Set stores a copy of payload for ttl. A non-positive ttl stores nothing.
func (c *MemoryCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)

	c.mu.Lock()
	c.entries[key] = memoryEntry{payload: stored, expiresAt: c.nowFn().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
