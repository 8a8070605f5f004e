package telemetry

import (
	"sync"
	"time"
)

// lastKnownCache is a thread-safe LRU cache holding the most recently
// ingested Record per device. Capacity and TTL bound the cache so a
// long-running process does not accumulate an entry per device forever.
//
// A doubly-linked list keeps access order and a map gives O(1) lookup;
// head.next is the most recently used entry, tail.prev the least.
// Per-key operations are atomic: a reader never observes a half-written
// record, and each Put fully replaces the prior entry.
type lastKnownCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration

	items map[string]*cacheEntry

	// head and tail are sentinel nodes for the doubly-linked list
	head *cacheEntry
	tail *cacheEntry
}

type cacheEntry struct {
	key       string
	record    Record
	prev      *cacheEntry
	next      *cacheEntry
	expiresAt time.Time
}

func newLastKnownCache(capacity int, ttl time.Duration) *lastKnownCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	c := &lastKnownCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*cacheEntry, capacity),
		head:     &cacheEntry{},
		tail:     &cacheEntry{},
	}

	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get returns the cached record for a device, if present and not
// expired. Found entries move to the front.
func (c *lastKnownCache) Get(deviceID string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[deviceID]
	if !exists {
		return Record{}, false
	}

	if time.Now().After(entry.expiresAt) {
		c.removeEntry(entry)
		return Record{}, false
	}

	c.moveToFront(entry)
	return entry.record, true
}

// Put replaces the cached record for a device (last write wins). The
// least recently used entry is evicted when the cache is at capacity.
func (c *lastKnownCache) Put(deviceID string, record Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if entry, exists := c.items[deviceID]; exists {
		entry.record = record
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &cacheEntry{
		key:       deviceID,
		record:    record,
		expiresAt: expiresAt,
	}

	c.addToFront(entry)
	c.items[deviceID] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Len returns the current number of entries
func (c *lastKnownCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lastKnownCache) addToFront(entry *cacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *lastKnownCache) moveToFront(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *lastKnownCache) removeEntry(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *lastKnownCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
