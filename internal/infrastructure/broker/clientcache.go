package broker

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// ClientCache holds one trading API handle per connection. A handle is
// rebuilt when the session version changes or after Invalidate.
type ClientCache struct {
	mu      sync.RWMutex
	entries map[string]cachedClient
	group   singleflight.Group
}

type cachedClient struct {
	client  Client
	version string
}

// NewClientCache creates an empty cache.
func NewClientCache() *ClientCache {
	return &ClientCache{entries: make(map[string]cachedClient)}
}

// Get returns the cached handle for key when its version matches, otherwise
// builds a new one. Concurrent misses for the same key and version share one build.
func (c *ClientCache) Get(key, version string, build func() (Client, error)) (Client, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && entry.version == version {
		return entry.client, nil
	}

	v, err, _ := c.group.Do(key+"|"+version, func() (interface{}, error) {
		client, err := build()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cachedClient{client: client, version: version}
		c.mu.Unlock()
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Client), nil
}

// Invalidate drops the handle for key.
func (c *ClientCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of cached handles.
func (c *ClientCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
