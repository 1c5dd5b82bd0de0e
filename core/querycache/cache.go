package querycache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached request: a resource name plus its identifying params.
type Key struct {
	Resource string
	Params   string
}

// NewKey builds a Key, e.g. NewKey("event", 3) or NewKey("venuePictures", venueID).
func NewKey(resource string, params ...interface{}) Key {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprint(p)
	}
	return Key{Resource: resource, Params: strings.Join(parts, "/")}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Resource
	}
	return k.Resource + "/" + k.Params
}

// Cache holds request results until they are invalidated; there is no expiry.
// Concurrent fetches of the same Key share a single call.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]interface{}
	gens    map[string]uint64 // per resource
	gen     uint64            // bumped by InvalidateAll
	group   singleflight.Group
}

func New() *Cache {
	return &Cache{
		entries: make(map[Key]interface{}),
		gens:    make(map[string]uint64),
	}
}

// Fetch returns the cached value for key or calls fn to produce it.
// A result that was fetched across an invalidation of its resource is returned but not cached.
// fn runs detached from ctx cancellation; a cancelled caller stops waiting while the call goes on.
func (c *Cache) Fetch(ctx context.Context, key Key, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	c.mu.RLock()
	if val, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return val, nil
	}
	gen, resGen := c.gen, c.gens[key.Resource]
	c.mu.RUnlock()

	flightKey := fmt.Sprintf("%s#%d.%d", key, gen, resGen)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		// shared by every waiter: no single caller may cancel it
		val, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen && c.gens[key.Resource] == resGen {
			c.entries[key] = val
		}
		c.mu.Unlock()
		return val, nil
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops every entry of the given resources.
func (c *Cache) Invalidate(resources ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, res := range resources {
		c.gens[res]++
		for key := range c.entries {
			if key.Resource == res {
				delete(c.entries, key)
			}
		}
	}
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[Key]interface{})
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get is the typed form of Cache.Fetch.
func Get[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	val, err := c.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return val.(T), nil
}
