package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Simplici0/landedcost/internal/pricing"
)

const categoriesKey = "landedcost:categories:v1"

// Categories caches the full category list under one key.
type Categories struct {
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCategories returns a category cache. A non-positive ttl disables caching.
func NewCategories(backend Backend, ttl time.Duration, logger *slog.Logger) *Categories {
	return &Categories{backend: backend, ttl: ttl, logger: logger}
}

// Load returns the cached list, or calls load and caches its result. Backend
// failures are logged and treated as misses. hit reports whether the list
// came from the cache.
func (c *Categories) Load(ctx context.Context, load func(context.Context) ([]pricing.Category, error)) (categories []pricing.Category, hit bool, err error) {
	if c.ttl <= 0 || c.backend == nil {
		categories, err = load(ctx)
		return categories, false, err
	}

	b, err := c.backend.Get(ctx, categoriesKey)
	switch {
	case err == nil:
		if err := json.Unmarshal(b, &categories); err == nil {
			return categories, true, nil
		}
		c.logger.Warn("discarding undecodable category cache entry", "key", categoriesKey)
	case !errors.Is(err, ErrMiss):
		c.logger.Warn("category cache read failed", "error", err)
	}

	categories, err = load(ctx)
	if err != nil {
		return nil, false, err
	}

	b, err = json.Marshal(categories)
	if err != nil {
		return nil, false, fmt.Errorf("encode categories: %w", err)
	}
	if err := c.backend.Set(ctx, categoriesKey, b, c.ttl); err != nil {
		c.logger.Warn("category cache write failed", "error", err)
	}
	return categories, false, nil
}

// Invalidate drops the cached list so the next Load reads the store.
func (c *Categories) Invalidate(ctx context.Context) error {
	if c.backend == nil {
		return nil
	}
	if err := c.backend.Delete(ctx, categoriesKey); err != nil {
		return fmt.Errorf("invalidate categories: %w", err)
	}
	return nil
}
