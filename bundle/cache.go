package bundle

import (
	"sync"
	"time"

	"github.com/hupe1980/agentdesk/core"
)

// Key identifies one cached bundle.
type Key struct {
	Agent    string
	Language string
	Tenant   string
}

// Cache stores resolved bundles. Implementations must be safe for concurrent
// use and must never hand out partially written entries.
type Cache interface {
	Get(k Key) (*core.AgentBundle, bool)
	Set(k Key, b *core.AgentBundle)
	Purge()
}

type cacheEntry struct {
	bundle  *core.AgentBundle
	expires time.Time
}

// TTLCache is an in-process Cache whose entries expire after a fixed TTL.
// Expired entries are dropped lazily on read.
type TTLCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[Key]cacheEntry
}

// NewTTLCache creates a cache with the given TTL. A non-positive ttl makes
// every entry expire immediately, which effectively disables caching.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{ttl: ttl, now: time.Now, entries: make(map[Key]cacheEntry)}
}

// Get returns a live entry.
func (c *TTLCache) Get(k Key) (*core.AgentBundle, bool) {
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		c.mu.Lock()
		if cur, ok := c.entries[k]; ok && cur.expires.Equal(e.expires) {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.bundle, true
}

// Set stores b under k.
func (c *TTLCache) Set(k Key, b *core.AgentBundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = cacheEntry{bundle: b, expires: c.now().Add(c.ttl)}
}

// Purge drops everything.
func (c *TTLCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]cacheEntry)
}

// Len returns the number of stored entries, expired ones included.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
