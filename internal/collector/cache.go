package collector

import (
	"context"
	"sync"
	"time"

	"TickerScope/internal/model"
)

// DefaultCacheTTL is how long a successful fetch is reused.
const DefaultCacheTTL = 15 * time.Minute

type cacheEntry struct {
	bars    []model.Bar
	expires time.Time
}

// Cache memoises successful fetches of the wrapped Fetcher by symbol and range.
type Cache struct {
	inner Fetcher
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache wraps inner. A non-positive ttl uses DefaultCacheTTL.
func NewCache(inner Fetcher, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{inner: inner, ttl: ttl, now: time.Now, entries: make(map[string]cacheEntry)}
}

func (c *Cache) Name() string { return c.inner.Name() }

func (c *Cache) FetchDailyBars(ctx context.Context, symbol, rng string) ([]model.Bar, error) {
	key := c.inner.Name() + "|" + symbol + "|" + rng

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return cloneBars(e.bars), nil
	}
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	bars, err := c.inner.FetchDailyBars(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{bars: cloneBars(bars), expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return bars, nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}

func cloneBars(bars []model.Bar) []model.Bar {
	out := make([]model.Bar, len(bars))
	copy(out, bars)
	return out
}
