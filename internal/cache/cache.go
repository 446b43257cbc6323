// Package cache provides the per-client, in-memory response cache keyed
// by request fingerprints. Entries expire by TTL and are evicted lazily
// on read; an optional cron-scheduled janitor sweeps expired entries in
// the background.
package cache

import (
	"sync"
	"time"
)

// Cache stores responses keyed by request fingerprint.
//
// Contract:
// - Implementations must be safe for concurrent use.
// - An entry past its TTL is never returned.
// - Set is atomic with respect to its own key.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss or expiry.
	Get(key string) (any, bool)

	// Set stores a value with the given TTL. TTL<=0 means no caching.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a cached value. Idempotent.
	Delete(key string)

	// Purge removes all entries.
	Purge()

	// Len returns the number of stored entries, expired or not.
	Len() int
}

type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// Memory is an in-memory cache bounded by a max entry count. When full,
// the oldest entry is evicted to make room.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	maxEntries int
}

// NewMemory creates a memory cache. maxEntries<=0 means unbounded.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
	}
}

// Get retrieves a value, lazily removing it if expired.
func (c *Memory) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: another goroutine may have
		// replaced the entry since the read lock was dropped.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value under key with the given TTL.
func (c *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = &entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Delete removes a value. Idempotent.
func (c *Memory) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Purge removes all entries.
func (c *Memory) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes all expired entries and returns how many were removed.
func (c *Memory) Sweep() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// evictOldestLocked drops the entry with the earliest creation time.
// Caller must hold the write lock.
func (c *Memory) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

var _ Cache = (*Memory)(nil)
