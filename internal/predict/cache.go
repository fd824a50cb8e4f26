package predict

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// responseCache remembers predictions for identical applications. It holds at
// most size entries; the least recently used one is evicted first and expired
// entries are swept in the background. A nil cache stores nothing.
type responseCache struct {
	ttl     time.Duration
	entries *expirable.LRU[string, cacheEntry]
	now     func() time.Time
}

type cacheEntry struct {
	at     time.Time
	result PredictionResult
}

func newResponseCache(ttl time.Duration, size int) *responseCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &responseCache{
		ttl:     ttl,
		entries: expirable.NewLRU[string, cacheEntry](size, nil, ttl),
		now:     time.Now,
	}
}

func (c *responseCache) load(key string) (PredictionResult, bool) {
	if c == nil {
		return PredictionResult{}, false
	}
	cached, ok := c.entries.Get(key)
	if !ok {
		return PredictionResult{}, false
	}
	if c.now().Sub(cached.at) >= c.ttl {
		c.entries.Remove(key)
		return PredictionResult{}, false
	}
	return cached.result.clone(), true
}

func (c *responseCache) store(key string, result PredictionResult) {
	if c == nil {
		return
	}
	c.entries.Add(key, cacheEntry{at: c.now(), result: result.clone()})
}

func (c *responseCache) size() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
