package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/klingon-exchange/tradeledger/internal/catalog"
)

func inst(name string, qty int64) catalog.Instrument {
	return catalog.Instrument{Name: name, Price: 1, Quantity: qty}
}

func TestCacheFetchMissThenHit(t *testing.T) {
	c := NewCache(2)

	_, ok := c.Fetch("ACME")
	assert.False(t, ok)

	c.Insert(inst("ACME", 10))
	got, ok := c.Fetch("ACME")
	assert.True(t, ok)
	assert.Equal(t, int64(10), got.Quantity)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	c.Insert(inst("A", 1))
	c.Insert(inst("B", 2))
	c.Insert(inst("C", 3)) // evicts A, the LRU entry

	_, ok := c.Fetch("A")
	assert.False(t, ok)
	_, ok = c.Fetch("B")
	assert.True(t, ok)
	_, ok = c.Fetch("C")
	assert.True(t, ok)
}

func TestCacheFetchPromotesToMRU(t *testing.T) {
	c := NewCache(2)
	c.Insert(inst("A", 1))
	c.Insert(inst("B", 2))

	c.Fetch("A") // A is now MRU, B is LRU
	c.Insert(inst("C", 3)) // evicts B

	_, ok := c.Fetch("B")
	assert.False(t, ok)
	_, ok = c.Fetch("A")
	assert.True(t, ok)
}

func TestCacheInvalidateRemovesEntry(t *testing.T) {
	c := NewCache(4)
	c.Insert(inst("A", 1))

	removed := c.Invalidate("A")
	assert.True(t, removed)

	_, ok := c.Fetch("A")
	assert.False(t, ok)
}

func TestCacheDumpOrderedLRUToMRU(t *testing.T) {
	c := NewCache(4)
	c.Insert(inst("A", 1))
	c.Insert(inst("B", 2))
	c.Insert(inst("C", 3))
	c.Fetch("A") // promote A to MRU: order becomes [B, C, A]

	dump := c.Dump()
	require := []string{"B", "C", "A"}
	got := make([]string, 0, len(dump))
	for _, i := range dump {
		got = append(got, i.Name)
	}
	assert.Equal(t, require, got)
}
