package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
)

// DefaultCategoryTTL bounds how stale a cached category name may be.
const DefaultCategoryTTL = 10 * time.Minute

// CachedStore decorates a Store with a Redis cache for category lookups.
// Category names are re-read on every search response, so they are the one
// catalog read hot enough to cache. Product reads pass through untouched
// because the index versioning depends on seeing the freshest row.
type CachedStore struct {
	Store

	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps the given store. A nil client disables caching and
// every call delegates directly.
func NewCachedStore(store Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCategoryTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{Store: store, client: client, ttl: ttl, logger: logger}
}

// GetCategory returns the category from cache when present, reading through to
// the underlying store on a miss. Cache failures degrade to direct reads.
func (c *CachedStore) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	if c.client == nil {
		return c.Store.GetCategory(ctx, id)
	}

	key := categoryKey(id)
	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cat domain.Category
		if err := json.Unmarshal(cached, &cat); err == nil {
			return &cat, nil
		}
		// Corrupt entry, fall through and overwrite it.
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "category cache read failed", "category_id", id, "error", err)
	}

	cat, err := c.Store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cat); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "category cache write failed", "category_id", id, "error", err)
		}
	}

	return cat, nil
}

// InvalidateCategory drops the cached entry for a category, typically after a
// category change event.
func (c *CachedStore) InvalidateCategory(ctx context.Context, id string) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, categoryKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate category cache: %w", err)
	}
	return nil
}

func categoryKey(id string) string {
	return "catalog:category:" + id
}
