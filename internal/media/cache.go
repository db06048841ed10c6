package media

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/gopxl/beep/v2"
)

// DefaultCacheEntries bounds how many decoded files are kept in memory.
const DefaultCacheEntries = 64

// Cache keeps decoded buffers for recently played files.
type Cache struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	rate    beep.SampleRate
	max     int
	buffers map[string]*beep.Buffer
	order   []string // insertion order, oldest first
	decode  func(string, beep.SampleRate) (*beep.Buffer, error)
}

// NewCache creates a cache that decodes at the given rate.
func NewCache(rate beep.SampleRate, maxEntries int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &Cache{
		logger:  logger,
		rate:    rate,
		max:     maxEntries,
		buffers: make(map[string]*beep.Buffer),
		decode:  Decode,
	}
}

// Get returns the decoded buffer for path, decoding it on a miss.
// Decoding happens outside the cache lock.
func (c *Cache) Get(path string) (*beep.Buffer, error) {
	c.mu.RLock()
	buf, ok := c.buffers[path]
	c.mu.RUnlock()
	if ok {
		return buf, nil
	}

	buf, err := c.decode(path, c.rate)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.buffers[path]; !exists {
		c.order = append(c.order, path)
	}
	c.buffers[path] = buf
	for len(c.order) > c.max {
		delete(c.buffers, c.order[0])
		c.order = c.order[1:]
	}
	return buf, nil
}

// Invalidate removes a specific path from the cache.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.buffers[path]; !ok {
		return
	}
	delete(c.buffers, path)
	c.order = slices.DeleteFunc(c.order, func(p string) bool { return p == path })
	c.logger.Debug("decoded audio invalidated", "path", path)
}

// Clear drops every cached buffer.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers = make(map[string]*beep.Buffer)
	c.order = nil
}

// Len returns the number of cached buffers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.buffers)
}
