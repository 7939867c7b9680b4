// Package cache memoizes prepared surfaces so repeated captions on the same
// source image skip the upscale.
//
// Entries are keyed by content hash and evicted least-recently-used once the
// entry or byte budget is exceeded. Surfaces are copied on the way in and on
// the way out, so callers keep exclusive ownership of what they hold.
package cache

import (
	"container/list"
	"sync"

	"github.com/MeKo-Tech/pixkit/internal/surface"
)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
	Bytes     int64
}

// Observer is told about every lookup outcome.
type Observer func(hit bool)

type entry struct {
	key     Key
	surface *surface.Surface
}

// Cache is an LRU of surfaces. It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	maxBytes   int64
	ll         *list.List
	items      map[Key]*list.Element
	bytes      int64
	stats      Stats
	observer   Observer
}

// New returns a cache bounded by maxEntries and maxBytes. A zero bound is
// unlimited.
func New(maxEntries int, maxBytes int64) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		ll:         list.New(),
		items:      make(map[Key]*list.Element),
	}
}

// SetObserver installs fn to be called after each Get.
func (c *Cache) SetObserver(fn Observer) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

// Get returns a copy of the cached surface.
func (c *Cache) Get(key Key) (*surface.Surface, bool) {
	c.mu.Lock()
	el, ok := c.items[key]
	if ok {
		c.ll.MoveToFront(el)
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	obs := c.observer
	var out *surface.Surface
	if ok {
		out = el.Value.(*entry).surface.Clone() //nolint:forcetypeassert // list holds only *entry
	}
	c.mu.Unlock()

	if obs != nil {
		obs(ok)
	}
	return out, ok
}

// Put stores a copy of s under key. A surface larger than the byte budget
// is not stored.
func (c *Cache) Put(key Key, s *surface.Surface) {
	size := int64(len(s.Pix))
	if c.maxBytes > 0 && size > c.maxBytes {
		return
	}
	cp := s.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry) //nolint:forcetypeassert // list holds only *entry
		c.bytes += size - int64(len(e.surface.Pix))
		e.surface = cp
		c.ll.MoveToFront(el)
	} else {
		c.items[key] = c.ll.PushFront(&entry{key: key, surface: cp})
		c.bytes += size
	}
	c.evictLocked()
}

// GetOrCompute returns the cached surface for key, or runs compute, caches
// its result and returns it. The returned surface is owned by the caller.
func (c *Cache) GetOrCompute(key Key, compute func() (*surface.Surface, error)) (*surface.Surface, bool, error) {
	if s, ok := c.Get(key); ok {
		return s, true, nil
	}
	s, err := compute()
	if err != nil {
		return nil, false, err
	}
	c.Put(key, s)
	return s, false, nil
}

// Evict drops key if present.
func (c *Cache) Evict(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[Key]*list.Element)
	c.bytes = 0
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.ll.Len()
	s.Bytes = c.bytes
	return s
}

func (c *Cache) evictLocked() {
	for c.ll.Len() > 0 &&
		((c.maxEntries > 0 && c.ll.Len() > c.maxEntries) || (c.maxBytes > 0 && c.bytes > c.maxBytes)) {
		c.removeLocked(c.ll.Back())
		c.stats.Evictions++
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	e := c.ll.Remove(el).(*entry) //nolint:forcetypeassert // list holds only *entry
	delete(c.items, e.key)
	c.bytes -= int64(len(e.surface.Pix))
}
