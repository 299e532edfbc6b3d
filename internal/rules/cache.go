package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LoadFunc fetches rule definitions from the external feed (database,
// file, or both). It is called at most once per TTL window.
type LoadFunc func(ctx context.Context) ([]CategoryRule, error)

// Cache wraps a rule feed with a bounded TTL. It is constructed once and
// passed by reference; invalidation is an explicit external operation, the
// engine never polls.
type Cache struct {
	load   LoadFunc
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	cats     []Category
	loadedAt time.Time
}

// NewCache builds a cache over load with the given TTL.
func NewCache(load LoadFunc, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{load: load, ttl: ttl, logger: logger}
}

// GetOrLoad returns the cached categories, refreshing from the feed when
// the TTL has expired. A failed refresh keeps serving the previous rules
// rather than failing the batch, unless nothing was ever loaded.
func (c *Cache) GetOrLoad(ctx context.Context) ([]Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cats != nil && time.Since(c.loadedAt) < c.ttl {
		return c.cats, nil
	}

	defs, err := c.load(ctx)
	if err != nil {
		if c.cats != nil {
			c.logger.Warn("rule reload failed, serving stale rules",
				"error", err,
				"age", time.Since(c.loadedAt).String(),
			)
			return c.cats, nil
		}
		return nil, fmt.Errorf("load category rules: %w", err)
	}

	c.cats = Compile(defs, c.logger)
	c.loadedAt = time.Now()
	c.logger.Info("category rules loaded", "categories", len(c.cats))

	return c.cats, nil
}

// Invalidate drops the cached rules so the next GetOrLoad hits the feed.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cats = nil
	c.loadedAt = time.Time{}
}
