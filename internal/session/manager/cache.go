package manager

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"imovan/internal/identity"
)

// profileCache holds fetched profiles for the lifetime of their session. It
// is scoped to one Manager instance, never shared process-wide.
type profileCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]cacheEntry
}

type cacheEntry struct {
	profile identity.Profile
	until   time.Time
}

func newProfileCache() *profileCache {
	return &profileCache{entries: make(map[uuid.UUID]cacheEntry)}
}

func (c *profileCache) get(id uuid.UUID, now time.Time) (*identity.Profile, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !now.Before(entry.until) {
		c.invalidate(id)
		return nil, false
	}
	profile := entry.profile
	return &profile, true
}

func (c *profileCache) put(profile identity.Profile, until time.Time) {
	c.mu.Lock()
	c.entries[profile.ID] = cacheEntry{profile: profile, until: until}
	c.mu.Unlock()
}

func (c *profileCache) invalidate(id uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}
