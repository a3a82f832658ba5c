// Package cache provides a small in-process TTL cache. It backs the
// permission-lookup cache and the burst detector's per-second counters; both
// are advisory and safe to lose on restart.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// TTL is a concurrency-safe map with per-entry expiry and periodic sweeping.
type TTL struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once

	// now is swappable for tests
	now func() time.Time
}

// NewTTL creates a cache whose entries live for defaultTTL. A background
// sweeper evicts expired entries every sweepInterval; pass 0 to disable
// sweeping (entries are then evicted lazily on read).
func NewTTL(defaultTTL, sweepInterval time.Duration) *TTL {
	c := &TTL{
		entries: make(map[string]entry),
		ttl:     defaultTTL,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	if sweepInterval > 0 {
		go c.sweep(sweepInterval)
	}

	return c
}

// Get returns the cached value and whether it was present and unexpired.
func (c *TTL) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value under the default TTL.
func (c *TTL) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with an explicit lifetime.
func (c *TTL) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Increment atomically bumps an integer counter stored under key, creating it
// with the default TTL when absent, and returns the new count. The expiry is
// not extended on subsequent increments so counters roll over naturally.
func (c *TTL) Increment(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	now := c.now()
	if !ok || now.After(e.expiresAt) {
		c.entries[key] = entry{value: 1, expiresAt: now.Add(c.ttl)}
		return 1
	}

	count, _ := e.value.(int)
	count++
	c.entries[key] = entry{value: count, expiresAt: e.expiresAt}
	return count
}

// Delete removes a key.
func (c *TTL) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries including any not yet swept.
func (c *TTL) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop terminates the background sweeper.
func (c *TTL) Stop() {
	c.once.Do(func() { close(c.stopCh) })
}

func (c *TTL) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}
