// Package fifo provides a bounded map that evicts in insertion order.
// Reads never refresh an entry's position.
package fifo

import (
	"sync"
	"time"
)

// Entry is a stored value with its insertion time.
type Entry[V any] struct {
	Value      V
	InsertedAt time.Time
}

// Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	order    []K
	items    map[K]Entry[V]
	now      func() time.Time
}

// New returns a cache holding at most capacity entries (minimum 1).
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]Entry[V], capacity),
		now:      time.Now,
	}
}

// Get returns the entry stored under key.
func (c *Cache[K, V]) Get(key K) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	return e, ok
}

// Put stores value under key. Overwriting an existing key keeps its
// original position in the eviction order. It returns the evicted key, if
// any.
func (c *Cache[K, V]) Put(key K, value V) (evicted K, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		c.items[key] = Entry[V]{Value: value, InsertedAt: c.now()}
		return evicted, false
	}
	if len(c.order) >= c.capacity {
		evicted, ok = c.order[0], true
		c.order = c.order[1:]
		delete(c.items, evicted)
	}
	c.order = append(c.order, key)
	c.items[key] = Entry[V]{Value: value, InsertedAt: c.now()}
	return evicted, ok
}

// Len reports the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Keys returns keys oldest first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]K(nil), c.order...)
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.items = make(map[K]Entry[V], c.capacity)
}
