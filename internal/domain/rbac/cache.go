package rbac

import (
	"sync"
	"time"
)

type cacheEntry struct {
	permissions []Permission
	expiresAt   time.Time
}

// Cache holds resolved permission sets per user with a fixed TTL and lazy
// expiration. It never self-heals between a mutation and the next expiry;
// mutating callers must invalidate explicitly.
type Cache struct {
	ttl     time.Duration
	entries map[int64]*cacheEntry
	mu      sync.RWMutex
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[int64]*cacheEntry),
		now:     time.Now,
	}
}

// SetClock replaces the cache's time source. Intended for tests.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }

// Get returns the cached permission set, deleting and missing on an
// expired entry.
func (c *Cache) Get(userID int64) ([]Permission, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		return nil, false
	}
	return entry.permissions, true
}

func (c *Cache) Set(userID int64, permissions []Permission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = &cacheEntry{
		permissions: permissions,
		expiresAt:   c.now().Add(c.ttl),
	}
}

// Invalidate drops one user's entry.
func (c *Cache) Invalidate(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// Clear drops every entry. Used after role or permission mutations whose
// affected user set is unknown.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]*cacheEntry)
}
