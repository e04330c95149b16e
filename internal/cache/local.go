// Package cache implements the two-tier query cache: a process-local
// bounded LRU in front of the shared Redis tier.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type localEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// LocalCache is the capacity-bounded tier-1 cache. Entries carry absolute
// expiry timestamps; expired entries are evicted lazily on read, and the
// least-recently-used entry is evicted when the size cap is exceeded.
type LocalCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[string]*list.Element

	now func() time.Time
}

// NewLocalCache creates a tier-1 cache holding at most capacity entries.
func NewLocalCache(capacity int) *LocalCache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &LocalCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

// Get returns the value and marks it most-recently-used if unexpired, else
// evicts it and reports a miss.
func (c *LocalCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*localEntry)
	if !c.now().Before(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		return nil, false
	}

	c.order.MoveToFront(el)
	return entry.value, true
}

// Set inserts or updates an entry, evicting the least-recently-used entry
// whenever the size cap is exceeded.
func (c *LocalCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*localEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&localEntry{key: key, value: value, expiresAt: expiresAt})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*localEntry).key)
	}
}

// Delete removes a single key, reporting whether it was present.
func (c *LocalCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// DeletePrefix removes every entry whose key begins with prefix.
func (c *LocalCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*localEntry)
		if len(entry.key) >= len(prefix) && entry.key[:len(prefix)] == prefix {
			c.order.Remove(el)
			delete(c.items, entry.key)
			removed++
		}
		el = next
	}
	return removed
}

// Len reports the current entry count, expired entries included until their
// lazy eviction.
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
