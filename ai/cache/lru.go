// Package cache provides a generic in-process LRU cache with per-entry TTL.
// It backs the classifier result cache and the pending expense selections.
package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	DefaultCapacity = 1000
	DefaultTTL      = 5 * time.Minute
)

// LRUCache is safe for concurrent use. Expired entries are dropped lazily on
// access, or in bulk by Prune.
type LRUCache[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]*list.Element
	recency  *list.List // front is most recently used
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type item[K comparable, V any] struct {
	key      K
	value    V
	deadline time.Time
}

// Option configures an LRUCache.
type Option func(*config)

type config struct {
	now func() time.Time
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// NewLRUCache creates a cache holding at most capacity entries, each living
// ttl unless stored with PutFor. Non-positive arguments take the defaults.
func NewLRUCache[K comparable, V any](capacity int, ttl time.Duration, opts ...Option) *LRUCache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &LRUCache[K, V]{
		items:    make(map[K]*list.Element, capacity),
		recency:  list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      cfg.now,
	}
}

// Get returns the live value for key and marks it recently used.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.recency.MoveToFront(el)
	return el.Value.(*item[K, V]).value, true
}

// Take is Get followed by Delete, atomically.
func (c *LRUCache[K, V]) Take(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.unlink(el)
	return el.Value.(*item[K, V]).value, true
}

// Put stores value under key with the cache TTL.
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.PutFor(key, value, c.ttl)
}

// PutFor stores value under key for ttl, replacing any earlier value and
// evicting the least recently used entry when full.
func (c *LRUCache[K, V]) PutFor(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.now().Add(ttl)
	if el, ok := c.items[key]; ok {
		it := el.Value.(*item[K, V])
		it.value, it.deadline = value, deadline
		c.recency.MoveToFront(el)
		return
	}
	for len(c.items) >= c.capacity {
		c.unlink(c.recency.Back())
	}
	c.items[key] = c.recency.PushFront(&item[K, V]{key: key, value: value, deadline: deadline})
}

// Delete drops key. It reports whether an entry, live or expired, was present.
func (c *LRUCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if ok {
		c.unlink(el)
	}
	return ok
}

// Len counts stored entries, expired ones included.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries.
func (c *LRUCache[K, V]) Capacity() int {
	return c.capacity
}

// Prune removes every expired entry and returns how many were removed.
func (c *LRUCache[K, V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.recency.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*item[K, V]).deadline) {
			c.unlink(el)
			removed++
		}
		el = prev
	}
	return removed
}

// lookup returns the element for key, unlinking it if expired. Caller holds mu.
func (c *LRUCache[K, V]) lookup(key K) (*list.Element, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.now().After(el.Value.(*item[K, V]).deadline) {
		c.unlink(el)
		return nil, false
	}
	return el, true
}

// unlink removes el from both indexes. Caller holds mu.
func (c *LRUCache[K, V]) unlink(el *list.Element) {
	if el == nil {
		return
	}
	c.recency.Remove(el)
	delete(c.items, el.Value.(*item[K, V]).key)
}
