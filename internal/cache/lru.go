// Package cache implements the bounded LRU card cache that fronts the card
// store. Keys are normalized card names or card IDs; values are immutable
// card views. A single mutex guards the list and the counters, which keeps
// get/put-with-reorder atomic under concurrent requests.
package cache

import (
	"container/list"
	"strings"
	"sync"

	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

// DefaultMaxSize is used when no capacity is configured (CACHE_L2_MAX_SIZE).
const DefaultMaxSize = 1000

// Stats reports cumulative cache performance counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

type entry struct {
	key  string
	card *types.Card
}

// Cache is a bounded LRU over normalized string keys.
type Cache struct {
	mu        sync.Mutex
	maxSize   int
	ll        *list.List
	items     map[string]*list.Element
	hits      int64
	misses    int64
	evictions int64
}

// New creates a cache with the given capacity. Non-positive capacities fall
// back to DefaultMaxSize.
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		maxSize: maxSize,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the cached card for key, moving it to the MRU end on a hit.
func (c *Cache) Get(key string) *types.Card {
	k := normalizeKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[k]; ok {
		c.ll.MoveToFront(el)
		c.hits++
		return el.Value.(*entry).card
	}
	c.misses++
	return nil
}

// Put stores a card under key. An existing key is updated in place and moved
// to the MRU end; at capacity the LRU entry is evicted first.
func (c *Cache) Put(key string, card *types.Card) {
	k := normalizeKey(key)
	if k == "" || card == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[k]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*entry).card = card
		return
	}

	if c.ll.Len() >= c.maxSize {
		c.evictLRU()
	}
	el := c.ll.PushFront(&entry{key: k, card: card})
	c.items[k] = el
}

// Evict removes a specific key.
func (c *Cache) Evict(key string) {
	k := normalizeKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[k]; ok {
		c.ll.Remove(el)
		delete(c.items, k)
		c.evictions++
	}
}

// Clear drops all entries and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// GetStats returns a snapshot of the counters.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.ll.Len(),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// evictLRU removes the least recently used entry. Caller holds the lock.
func (c *Cache) evictLRU() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	ent := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.items, ent.key)
	c.evictions++
	logging.CacheDebug("evicted %q (capacity %d)", ent.key, c.maxSize)
}
