package cache

import (
	"sync"
	"time"

	"github.com/vertextoedge/secure-file-share/internal/port"
)

// Memory is a process-local TTL cache. Expiry is absolute, not sliding.
// Correct only for single-instance deployments; multi-instance deployments
// should use the redis backend instead.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// now is swappable for tests
	now func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Ensure Memory implements port.Cache
var _ port.Cache = (*Memory)(nil)

// NewMemory creates an empty in-memory cache
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached value for key, or ok=false on a miss
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key with an absolute TTL
func (m *Memory) Set(key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Opportunistic sweep keeps the map bounded without a janitor goroutine
	if len(m.entries) > 10000 {
		now := m.now()
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
	}

	m.entries[key] = memoryEntry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
