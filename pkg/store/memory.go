package store

import (
	"context"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/dan-solli/listops/pkg/llm"
)

const defaultMemoryEntries = 1024

// MemoryCache implements llm.Cache in process memory. When full, the least
// recently used response is evicted. Safe for concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries *lru.Cache
	stored  map[string]time.Time
	hits    int64
}

type memoryEntry struct {
	resp llm.Response
	hits int64
}

// Compile-time interface check
var _ llm.Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache holding at most maxEntries responses
// (default: 1024).
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryEntries
	}
	c := &MemoryCache{
		entries: lru.New(maxEntries),
		stored:  make(map[string]time.Time),
	}
	c.entries.OnEvicted = func(key lru.Key, value any) {
		c.hits -= value.(*memoryEntry).hits
		delete(c.stored, key.(string))
	}
	return c
}

// Get returns the response stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) (llm.Response, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries.Get(key)
	if !ok {
		return llm.Response{}, false, nil
	}
	entry := v.(*memoryEntry)
	entry.hits++
	c.hits++
	return entry.resp, true, nil
}

// Put stores resp under key, replacing any earlier entry.
func (c *MemoryCache) Put(_ context.Context, key string, resp llm.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(key)
	c.entries.Add(key, &memoryEntry{resp: resp})
	c.stored[key] = time.Now()
	return nil
}

// Stats returns the number of stored responses and the hits they served.
func (c *MemoryCache) Stats(context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: int64(c.entries.Len()), Hits: c.hits}, nil
}

// Prune removes responses stored before cutoff.
func (c *MemoryCache) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []string
	for key, at := range c.stored {
		if at.Before(cutoff) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		c.entries.Remove(key)
	}
	return int64(len(stale)), nil
}

// Clear removes every stored response.
func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Clear()
	return nil
}
