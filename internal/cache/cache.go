// Package cache provides the in-process memoization store used by the
// article selector. Entries expire after a TTL and are reaped by a
// background sweeper.
package cache

import (
	"sync"
	"time"
)

const (
	DefaultTTL           = 15 * time.Minute
	defaultSweepInterval = time.Minute
)

type entry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is a thread-safe map with per-entry expiry. Stop terminates the
// sweeper; a stopped cache still serves lookups, it just no longer reaps.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

func NewTTLCache(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &TTLCache{
		entries: map[string]entry{},
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go c.sweep(defaultSweepInterval)
	return c
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTLCache) Stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *TTLCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Nop satisfies the same surface with no storage. Useful for disabling
// memoization in tests.
type Nop struct{}

func (Nop) Get(string) (any, bool) { return nil, false }
func (Nop) Set(string, any)        {}
