package tokens

import "sync"

// Entry is the per-token configuration.
type Entry struct {
	RateLimit int
	Comment   string
}

// Cache is the in-memory view of the tokens table.
type Cache struct {
	mu sync.RWMutex
	m  map[string]Entry
}

// NewCache returns an empty cache that is not ready until the first Replace.
func NewCache() *Cache {
	return &Cache{}
}

// Replace swaps the cached tokens for a copy of m.
func (c *Cache) Replace(m map[string]Entry) {
	next := make(map[string]Entry, len(m))
	for k, v := range m {
		next[k] = v
	}
	c.mu.Lock()
	c.m = next
	c.mu.Unlock()
}

// Ready returns true if the cache has been loaded at least once.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m != nil
}

// Validate checks whether token is known.
func (c *Cache) Validate(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.m[token]
	return ok
}

// RateLimit returns the configured limit for token. Unknown tokens get 0,
// which disables per-token limiting.
func (c *Cache) RateLimit(token string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[token].RateLimit
}

// Len returns the number of cached tokens.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
