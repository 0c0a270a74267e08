// Package cache stores inferred directions keyed by normalized address.
// Memory is a bounded in-process LRU with a TTL, Redis shares results across
// replicas, and Tiered layers the two. CachedGeocoder puts the same LRU in
// front of a geocoding provider.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// lru is a thread-safe LRU whose entries expire after a fixed TTL.
type lru[V any] struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry[V]
	head    *entry[V] // most recently used
	tail    *entry[V] // least recently used
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	prev      *entry[V]
	next      *entry[V]
}

// newLRU creates a cache of at most maxEntries values. A zero ttl keeps entries
// until they are evicted. A nil clock uses the real one.
func newLRU[V any](maxEntries int, ttl time.Duration, clock clockwork.Clock) *lru[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &lru[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lru[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.expired(e) {
		delete(c.entries, e.key)
		c.remove(e)
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lru[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = c.deadline()
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value, expiresAt: c.deadline()}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lru[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lru[V]) deadline() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(c.ttl)
}

func (c *lru[V]) expired(e *entry[V]) bool {
	return !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt)
}

func (c *lru[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lru[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lru[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lru[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
