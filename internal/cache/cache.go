// Package cache keeps API read results keyed by resource tuples until a mutation invalidates them.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

const keySep = "\x1f"

// Key is an ordered tuple of parts, for example ("tasks", "list", "status=TODO").
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

func (k Key) encode() string {
	return strings.Join(k, keySep)
}

func (k Key) hasPrefix(prefix []string) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}

type entry struct {
	key      Key
	value    any
	storedAt time.Time
}

// QueryCache is safe for concurrent use. A zero TTL keeps entries until invalidated.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func New(ttl time.Duration) *QueryCache {
	return &QueryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *QueryCache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.encode()]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key.encode())
		return nil, false
	}
	return e.value, true
}

func (c *QueryCache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.encode()] = entry{key: append(Key(nil), key...), value: value, storedAt: c.now()}
}

// Remove drops the exact key only.
func (c *QueryCache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key.encode())
}

// Invalidate drops every key whose leading parts equal prefix and returns how many went.
func (c *QueryCache) Invalidate(prefix ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if e.key.hasPrefix(prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *QueryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetch returns the cached value for key or loads, stores and returns it.
// Failed loads are not stored.
func Fetch[T any](ctx context.Context, c *QueryCache, key Key, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}
