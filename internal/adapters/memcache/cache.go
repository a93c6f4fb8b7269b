package memcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"flex_reviews/internal/adapters/observability"
)

type entry struct {
	val       []byte
	expiresAt time.Time
	timer     *time.Timer
}

// Cache is a process-local TTL cache. Each entry owns a timer that removes
// it at expiry; Get also drops entries whose deadline has passed, so a late
// timer never makes an expired value visible.
type Cache struct {
	mu    sync.Mutex
	items map[string]*entry
	now   func() time.Time
}

func New() *Cache {
	return &Cache{items: make(map[string]*entry), now: time.Now}
}

func (c *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	e, ok := c.items[key]
	if ok && !c.now().Before(e.expiresAt) {
		c.removeLocked(key, e)
		ok = false
		observability.ObserveCache("memory", "expire")
	}
	var val []byte
	if ok {
		val = e.val
	}
	c.mu.Unlock()

	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	return true, json.Unmarshal(val, dst)
}

// Set stores v for ttl, replacing any previous entry and its timer.
// A non-positive ttl deletes the key.
func (c *Cache) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.items[key]; ok {
		c.removeLocked(key, old)
	}
	if ttl <= 0 {
		return nil
	}
	e := &entry{val: b, expiresAt: c.now().Add(ttl)}
	e.timer = time.AfterFunc(ttl, func() { c.expire(key, e) })
	c.items[key] = e
	observability.ObserveCache("memory", "set")
	return nil
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.removeLocked(key, e)
		observability.ObserveCache("memory", "del")
	}
	return nil
}

// Clear drops every entry and stops all pending timers.
func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		c.removeLocked(k, e)
	}
	observability.ObserveCache("memory", "clear")
	return nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// expire runs on the entry's timer; it is a no-op if key was rewritten since.
func (c *Cache) expire(key string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.items[key]; ok && cur == e {
		delete(c.items, key)
		observability.ObserveCache("memory", "expire")
	}
}

func (c *Cache) removeLocked(key string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(c.items, key)
}
