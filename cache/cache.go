// Package cache memoises prepared snapshot content. Snapshot HTML is
// immutable, so a cached preparation never goes stale; entries are evicted
// only for capacity and idleness.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// entry holds a cached value with its last access timestamp.
type entry struct {
	value      string
	lastAccess time.Time
}

// Cache is a simple in-memory string cache, safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// New creates a Cache with the given maximum number of entries. A background
// goroutine evicts entries unused for an hour, every 5 minutes.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}
	go c.cleanupLoop()
	return c
}

// Key derives a cache key from a snapshot identifier and a preparation
// variant (e.g. "stripped", "markdown").
func Key(snapshotID, variant string) string {
	h := sha256.New()
	h.Write([]byte(snapshotID))
	h.Write([]byte("|"))
	h.Write([]byte(variant))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached value, refreshing its idle timer on hit.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[key]
	if !ok {
		return "", false
	}
	e.lastAccess = time.Now()
	return e.value, true
}

// Set stores a value. If the cache is at capacity, a random entry is evicted
// to make room (map iteration order is random in Go).
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{value: value, lastAccess: time.Now()}
}

// cleanupLoop evicts entries idle for over an hour, every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.lastAccess.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
