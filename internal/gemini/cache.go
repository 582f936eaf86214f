package gemini

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Searcher = (*Cache)(nil)

// cacheEntry stores one cached result with expiry.
type cacheEntry struct {
	expiresAt time.Time
	result    *Result
}

// Cache decorates a Searcher with a per-symbol TTL cache. Only successful
// structured results are cached; content misses and transport errors always
// go back to the underlying searcher.
type Cache struct {
	S   Searcher
	TTL time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// SearchStock returns a cached result when one is still valid, otherwise it
// delegates to the underlying searcher and caches a successful outcome.
func (c *Cache) SearchStock(ctx context.Context, symbol string) (*Result, error) {
	if c.S == nil || c.TTL <= 0 {
		return c.S.SearchStock(ctx, symbol)
	}

	key := strings.ToUpper(strings.TrimSpace(symbol))
	now := time.Now()

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.result, nil
	}

	result, err := c.S.SearchStock(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if result.Snapshot != nil {
		c.mu.Lock()
		if c.items == nil {
			c.items = make(map[string]cacheEntry)
		}
		c.items[key] = cacheEntry{expiresAt: now.Add(c.TTL), result: result}
		c.mu.Unlock()
	}

	return result, nil
}
