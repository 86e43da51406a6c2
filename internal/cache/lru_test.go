package cache

import (
	"fmt"
	"testing"

	"github.com/swstevens/agentic-cag-system/internal/types"
)

func card(name string) *types.Card {
	return &types.Card{ID: name + "-id", Name: name}
}

func TestGetPut(t *testing.T) {
	c := New(10)

	if got := c.Get("Lightning Bolt"); got != nil {
		t.Errorf("empty cache returned %v", got)
	}

	bolt := card("Lightning Bolt")
	c.Put("Lightning Bolt", bolt)

	got := c.Get("Lightning Bolt")
	if got != bolt {
		t.Errorf("Get returned %v, want the cached card", got)
	}
}

func TestKeyNormalization(t *testing.T) {
	c := New(10)
	c.Put("  Lightning Bolt  ", card("Lightning Bolt"))

	if c.Get("lightning bolt") == nil {
		t.Error("lookup with different casing missed")
	}
	if c.Get("LIGHTNING BOLT") == nil {
		t.Error("lookup with upper casing missed")
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(3)
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("card%d", i)
		c.Put(name, card(name))
	}

	// Touch card0 so card1 becomes the LRU entry.
	c.Get("card0")
	c.Put("card3", card("card3"))

	if c.Get("card1") != nil {
		t.Error("card1 should have been evicted")
	}
	if c.Get("card0") == nil {
		t.Error("card0 should have survived (recently used)")
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestPutExistingMovesToMRU(t *testing.T) {
	c := New(2)
	c.Put("a", card("a"))
	c.Put("b", card("b"))
	// Re-put "a": it becomes MRU, so the next overflow evicts "b".
	c.Put("a", card("a2"))
	c.Put("c", card("c"))

	if c.Get("b") != nil {
		t.Error("b should have been evicted")
	}
	if got := c.Get("a"); got == nil || got.Name != "a2" {
		t.Errorf("re-put did not update value: %v", got)
	}
}

func TestEvictAndClear(t *testing.T) {
	c := New(10)
	c.Put("a", card("a"))
	c.Evict("A") // normalized key
	if c.Get("a") != nil {
		t.Error("explicit evict did not remove entry")
	}

	c.Put("b", card("b"))
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
	stats := c.GetStats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Evictions != 0 {
		t.Errorf("stats not reset after Clear: %+v", stats)
	}
}

func TestStats(t *testing.T) {
	c := New(2)
	c.Put("a", card("a"))

	c.Get("a")       // hit
	c.Get("missing") // miss
	c.Get("a")       // hit

	stats := c.GetStats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
	wantRate := 2.0 / 3.0
	if stats.HitRate < wantRate-0.001 || stats.HitRate > wantRate+0.001 {
		t.Errorf("HitRate = %v, want %v", stats.HitRate, wantRate)
	}
}

func TestHitCounterIncrementsPerHit(t *testing.T) {
	c := New(10)
	c.Put("a", card("a"))

	before := c.GetStats().Hits
	c.Get("a")
	after := c.GetStats().Hits
	if after != before+1 {
		t.Errorf("hit counter went %d -> %d, want +1", before, after)
	}
}

func TestZeroCapacityFallsBack(t *testing.T) {
	c := New(0)
	for i := 0; i < DefaultMaxSize+10; i++ {
		name := fmt.Sprintf("card%d", i)
		c.Put(name, card(name))
	}
	if c.Len() != DefaultMaxSize {
		t.Errorf("Len = %d, want %d", c.Len(), DefaultMaxSize)
	}
}
