// Package cache holds small invalidate-on-write caches the facade consults
// before going to the embedded store, for the read-mostly lookups the
// index makes most often.
package cache

import (
	"sync"

	"github.com/kestrelhealth/pacsindex/catalog"
)

// PublicIDCache caches GetAllPublicIds results per level. Any mutation that
// creates or deletes a resource at a level invalidates that level's entry;
// there is no TTL because the facade's single-writer mutex guarantees the
// cache and the store never diverge between an invalidation and the next
// read.
type PublicIDCache struct {
	mu      sync.RWMutex
	entries map[catalog.ResourceLevel][]string
}

// New returns an empty cache.
func New() *PublicIDCache {
	return &PublicIDCache{entries: make(map[catalog.ResourceLevel][]string)}
}

// Get returns a cached id list for a level, if present.
func (c *PublicIDCache) Get(level catalog.ResourceLevel) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.entries[level]
	return ids, ok
}

// Set stores the id list for a level.
func (c *PublicIDCache) Set(level catalog.ResourceLevel, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[level] = ids
}

// Invalidate drops a level's cached id list.
func (c *PublicIDCache) Invalidate(level catalog.ResourceLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, level)
}

// InvalidateAll drops every cached id list, used after a cascade delete that
// may touch several levels at once.
func (c *PublicIDCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[catalog.ResourceLevel][]string)
}
