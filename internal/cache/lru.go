// Package cache provides the bounded LRUs recollex layers on top of its
// durable stores: deserialized bitmaps and open segment readers. Both share
// the same shape — a count cap, an optional byte cap, and eviction from the
// least-recently-used end until both caps are satisfied — so they're built on
// one generic implementation here rather than bespoke maps. No cache of
// materialized CSR matrices is built on it.
//
// This generalizes the teacher's Index type: where that package held a
// sync.RWMutex-guarded map from key to a fixed-size RecordPointer with no
// eviction, this LRU keeps the same guarded-map-plus-linked-list shape but
// adds recency-ordered eviction and an optional per-entry byte cost.
package cache

import (
	"container/list"
	"sync"
)

// SizeFunc reports the byte cost of a cached value, for byte-capped LRUs.
// Caches that only cap by entry count pass a SizeFunc that always returns 0.
type SizeFunc[V any] func(V) int64

// entry is the linked-list payload: the key (needed on eviction to remove
// from the lookup map) and the cached value.
type entry[K comparable, V any] struct {
	key   K
	value V
	bytes int64
}

// LRU is a bounded, thread-safe least-recently-used cache. MaxEntries caps
// the count of resident entries (0 disables the count cap); MaxBytes caps
// the sum of each entry's SizeFunc result (0 disables the byte cap). Eviction
// always proceeds from the least-recently-used end and stops as soon as both
// caps are satisfied.
type LRU[K comparable, V any] struct {
	mu         sync.Mutex
	ll         *list.List
	items      map[K]*list.Element
	maxEntries int
	maxBytes   int64
	usedBytes  int64
	sizeOf     SizeFunc[V]
	onEvict    func(K, V)
}

// New builds an LRU. onEvict, if non-nil, is called (outside the lock) for
// every entry evicted or explicitly removed — the segment-reader cache uses
// it to close mmap handles.
func New[K comparable, V any](maxEntries int, maxBytes int64, sizeOf SizeFunc[V], onEvict func(K, V)) *LRU[K, V] {
	if sizeOf == nil {
		sizeOf = func(V) int64 { return 0 }
	}
	return &LRU[K, V]{
		ll:         list.New(),
		items:      make(map[K]*list.Element),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		sizeOf:     sizeOf,
		onEvict:    onEvict,
	}
}

// Get returns the cached value for key, moving it to the front (most
// recently used) on hit.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	v := el.Value.(*entry[K, V]).value
	c.mu.Unlock()
	return v, true
}

// Put inserts or replaces the cached value for key, then evicts from the
// back until both the count and byte caps are satisfied.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	bytes := c.sizeOf(value)

	if el, ok := c.items[key]; ok {
		old := el.Value.(*entry[K, V])
		c.usedBytes -= old.bytes
		el.Value = &entry[K, V]{key: key, value: value, bytes: bytes}
		c.usedBytes += bytes
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry[K, V]{key: key, value: value, bytes: bytes})
		c.items[key] = el
		c.usedBytes += bytes
	}

	evicted := c.evictLocked()
	c.mu.Unlock()

	for _, e := range evicted {
		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
	}
}

// Remove drops key from the cache, if present, invoking onEvict.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e := el.Value.(*entry[K, V])
	c.ll.Remove(el)
	delete(c.items, key)
	c.usedBytes -= e.bytes
	c.mu.Unlock()

	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}

// Len returns the number of resident entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Close evicts every entry, invoking onEvict for each, and leaves the cache empty.
func (c *LRU[K, V]) Close() {
	c.mu.Lock()
	var evicted []*entry[K, V]
	for el := c.ll.Front(); el != nil; el = el.Next() {
		evicted = append(evicted, el.Value.(*entry[K, V]))
	}
	c.ll.Init()
	c.items = make(map[K]*list.Element)
	c.usedBytes = 0
	c.mu.Unlock()

	for _, e := range evicted {
		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
	}
}

// evictLocked evicts from the back of the list until the count and byte caps
// are both satisfied. Must be called with c.mu held; returns the evicted
// entries so the caller can invoke onEvict outside the lock.
func (c *LRU[K, V]) evictLocked() []*entry[K, V] {
	var evicted []*entry[K, V]
	for {
		overCount := c.maxEntries > 0 && c.ll.Len() > c.maxEntries
		overBytes := c.maxBytes > 0 && c.usedBytes > c.maxBytes
		if !overCount && !overBytes {
			break
		}

		back := c.ll.Back()
		if back == nil {
			break
		}

		e := back.Value.(*entry[K, V])
		c.ll.Remove(back)
		delete(c.items, e.key)
		c.usedBytes -= e.bytes
		evicted = append(evicted, e)
	}
	return evicted
}
