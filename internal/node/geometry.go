package node

import "sync"

// Window is a vertical crop in pixels. The zero Window means uncropped.
type Window struct {
	Height int
	Offset int
}

// IsZero reports whether w describes no crop.
func (w Window) IsZero() bool {
	return w.Height == 0
}

// GeometryKey identifies one encoded rendering of an artifact.
type GeometryKey struct {
	// Height is the pixel height the artifact is fitted to before cropping.
	Height int

	Crop Window
}

// Cache stores encoded blobs by geometry. Entries are only ever added.
type Cache struct {
	mu      sync.RWMutex
	entries map[GeometryKey][]byte
}

// NewCache creates an empty geometry cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[GeometryKey][]byte)}
}

// Get returns the blob stored for key.
func (c *Cache) Get(key GeometryKey) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[key]
	return b, ok
}

// Put stores blob for key unless an entry already exists.
// The first blob stored for a key is kept.
func (c *Cache) Put(key GeometryKey, blob []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = blob
}

// Len returns the number of cached geometries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
