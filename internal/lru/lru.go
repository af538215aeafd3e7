// ABOUTME: Generic fixed-capacity least-recently-used cache
// ABOUTME: Doubly-linked list plus map gives O(1) promote-on-access and evict-oldest

package lru

import "container/list"

// entry is the list element payload.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// Cache is a bounded LRU cache. The front of the list is the most recently
// used entry; the back is the next eviction candidate.
//
// Cache is not safe for concurrent use; owners must guard it.
type Cache[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
	onEvict  func(K, V)
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithOnEvict registers a callback invoked when an entry is evicted for capacity.
// It is not called for Remove or Clear.
func WithOnEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates a cache holding at most capacity entries. It panics if capacity < 1.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *Cache[K, V] {
	if capacity < 1 {
		panic("lru: capacity must be at least 1")
	}
	c := &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and promotes it to most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Contains reports whether key is present without changing its recency.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.items[key]
	return ok
}

// Put inserts or replaces the value for key and makes it most recently used.
// Inserting a new key into a full cache first evicts the least recently used
// entry. Returns true if an eviction happened.
func (c *Cache[K, V]) Put(key K, value V) bool {
	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(elem)
		return false
	}

	evicted := false
	if c.order.Len() >= c.capacity {
		c.evictOldest()
		evicted = true
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	return evicted
}

// Remove deletes key. Returns true if it was present.
func (c *Cache[K, V]) Remove(key K) bool {
	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, key)
	return true
}

// Keys returns all keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry[K, V]).key)
	}
	return keys
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	return c.order.Len()
}

// Clear removes every entry and resets recency order.
func (c *Cache[K, V]) Clear() {
	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

// evictOldest removes the least recently used entry. O(1).
func (c *Cache[K, V]) evictOldest() {
	back := c.order.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry[K, V])
	c.order.Remove(back)
	delete(c.items, e.key)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}
