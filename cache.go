package pressroom

import (
	"context"
	"sync"
	"time"

	"github.com/avolier/pressroom/storage"
)

// contentCache is an in-memory TTL cache over the cheap-but-hot public reads:
// the landing record and the derived taxonomies. Article listings are never
// cached; they depend on too many filter combinations to be worth it.
type contentCache struct {
	mu      sync.RWMutex
	landing *storage.LandingContent
	tax     *storage.Taxonomies
	fetched time.Time
	ttl     time.Duration
	store   storage.Store
}

func newContentCache(s storage.Store, ttl time.Duration) *contentCache {
	return &contentCache{store: s, ttl: ttl}
}

func (c *contentCache) valid() bool {
	return c.landing != nil && c.tax != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
// Called after every admin mutation.
func (c *contentCache) Invalidate() {
	c.mu.Lock()
	c.landing = nil
	c.tax = nil
	c.mu.Unlock()
}

// ensureLoaded returns the cached landing and taxonomies after refreshing
// them if stale. It tries a read lock first; only takes a write lock when a
// reload is needed.
func (c *contentCache) ensureLoaded(ctx context.Context) (storage.LandingContent, storage.Taxonomies, error) {
	c.mu.RLock()
	if c.valid() {
		landing, tax := *c.landing, *c.tax
		c.mu.RUnlock()
		return landing, tax, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return *c.landing, *c.tax, nil
	}
	landing, err := c.store.LandingContent(ctx)
	if err != nil {
		return storage.LandingContent{}, storage.Taxonomies{}, err
	}
	tax, err := c.store.Taxonomies(ctx)
	if err != nil {
		return storage.LandingContent{}, storage.Taxonomies{}, err
	}
	c.landing = &landing
	c.tax = &tax
	c.fetched = time.Now()
	return landing, tax, nil
}

// Landing returns the cached landing content.
func (c *contentCache) Landing(ctx context.Context) (storage.LandingContent, error) {
	landing, _, err := c.ensureLoaded(ctx)
	return landing, err
}

// Taxonomies returns the cached category and tag sets.
func (c *contentCache) Taxonomies(ctx context.Context) (storage.Taxonomies, error) {
	_, tax, err := c.ensureLoaded(ctx)
	return tax, err
}
