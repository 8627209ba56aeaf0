package frontend

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/klingon-exchange/tradeledger/internal/catalog"
)

// Cache is the front-end's bounded LRU lookup cache (spec.md §3, §4.3):
// fetch promotes to MRU, insert evicts the LRU entry when full, and
// invalidate removes by key. hashicorp/golang-lru/v2's Cache already
// serializes Get/Add/Remove/Keys behind its own mutex and returns Keys()
// oldest-to-newest, which is exactly the fetch/insert/dump contract the
// original LruCache (a plain list under one lock) documents, so this
// wraps it rather than re-implementing a linked list.
type Cache struct {
	lru *lru.Cache[string, catalog.Instrument]
}

// NewCache builds a Cache with the given fixed capacity.
func NewCache(capacity int) *Cache {
	c, err := lru.New[string, catalog.Instrument](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0, which is a
		// configuration bug, not a runtime condition.
		panic(err)
	}
	return &Cache{lru: c}
}

// Fetch returns the cached instrument and promotes it to MRU on a hit.
func (c *Cache) Fetch(name string) (catalog.Instrument, bool) {
	return c.lru.Get(name)
}

// Insert adds name's snapshot, evicting the LRU entry first if the cache
// is already at capacity.
func (c *Cache) Insert(inst catalog.Instrument) {
	c.lru.Add(inst.Name, inst)
}

// Invalidate removes name if present, reporting whether it was there.
func (c *Cache) Invalidate(name string) bool {
	return c.lru.Remove(name)
}

// Dump returns the cache contents ordered [LRU, ..., MRU], matching
// GET /dump-cache (spec.md §6, §8).
func (c *Cache) Dump() []catalog.Instrument {
	keys := c.lru.Keys()
	out := make([]catalog.Instrument, 0, len(keys))
	for _, k := range keys {
		if inst, ok := c.lru.Peek(k); ok {
			out = append(out, inst)
		}
	}
	return out
}
