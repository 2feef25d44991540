package raster

import "sync"

// cacheKey identifies a rendered page bitmap by page index and target size.
type cacheKey struct {
	page   int
	width  int
	height int
}

// pageCache maps (page, width, height) to rendered buffers. Eviction is
// manual and total: Clear destroys every entry. Buffers inserted here are
// owned by the cache until cleared.
type pageCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*Buffer
}

func newPageCache() *pageCache {
	return &pageCache{entries: make(map[cacheKey]*Buffer)}
}

// Get returns the cached buffer for key, if present.
func (c *pageCache) Get(key cacheKey) (*Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.entries[key]
	return buf, ok
}

// Put inserts buf under key, transferring ownership to the cache. A buffer
// already present under the same key is destroyed and replaced.
func (c *pageCache) Put(key cacheKey, buf *Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[key]; ok && old != buf {
		old.Destroy()
	}
	buf.owner = OwnerCache
	c.entries[key] = buf
}

// Contains reports whether key is cached.
func (c *pageCache) Contains(key cacheKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of cached buffers.
func (c *pageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear destroys every cached buffer and empties the cache.
func (c *pageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, buf := range c.entries {
		buf.Destroy()
		delete(c.entries, key)
	}
}
