// Package index maintains the venue index: the mapping from trading pair to
// the venues known to list it. The index is held in memory for the process
// lifetime, persisted through a VenueIndexStore, and refreshed only by an
// explicit rebuild. Lookups may return stale entries between rebuilds.
package index

import (
	"sync"

	"github.com/seedliq/makerbot/internal/domain"
)

// Cache is the in-memory venue index. Lookup may be called concurrently;
// Replace takes exclusive access. Only the rebuild path writes.
type Cache struct {
	mu  sync.RWMutex
	idx domain.VenueIndex
}

// NewCache returns a Cache seeded with the given index, which may be nil when
// no persisted index exists yet.
func NewCache(idx domain.VenueIndex) *Cache {
	return &Cache{idx: idx}
}

// Lookup returns the venue list for an aggregator-format symbol. The second
// return is false when the index has no entry for the symbol.
func (c *Cache) Lookup(symbol string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	venues, ok := c.idx[symbol]
	return venues, ok
}

// Len returns the number of indexed symbols.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.idx)
}

// Replace swaps in a freshly rebuilt index, discarding all prior entries.
func (c *Cache) Replace(idx domain.VenueIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idx = idx
}

// Snapshot returns a copy of the current index, safe to serialize without
// holding the cache lock.
func (c *Cache) Snapshot() domain.VenueIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(domain.VenueIndex, len(c.idx))
	for sym, venues := range c.idx {
		cp := make([]string, len(venues))
		copy(cp, venues)
		out[sym] = cp
	}
	return out
}
