package repositories

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"restaurant_order_backend/internal/models"
	"restaurant_order_backend/pkg/utils"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// cachedCatalogRepository serves branch, table and user lookups cache-aside from Redis.
// Variants and menu items always go to the inner repository: prices and stock must be live.
type cachedCatalogRepository struct {
	inner  CatalogRepository
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCachedCatalogRepository wraps inner with a Redis cache.
func NewCachedCatalogRepository(inner CatalogRepository, client *redis.Client, ttl time.Duration) CatalogRepository {
	return &cachedCatalogRepository{inner: inner, client: client, ttl: ttl}
}

func branchCacheKey(slug string) string { return "catalog:branch:" + slug }

func tableCacheKey(branchID int64, slug string) string {
	return fmt.Sprintf("catalog:table:%d:%s", branchID, slug)
}

func userCacheKey(slug string) string { return "catalog:user:" + slug }

func (r *cachedCatalogRepository) GetBranchBySlug(ctx context.Context, slug string) (*models.Branch, error) {
	return cacheAside(ctx, r, branchCacheKey(slug), func(ctx context.Context) (*models.Branch, error) {
		return r.inner.GetBranchBySlug(ctx, slug)
	})
}

func (r *cachedCatalogRepository) GetTableBySlugInBranch(ctx context.Context, slug string, branchID int64) (*models.Table, error) {
	return cacheAside(ctx, r, tableCacheKey(branchID, slug), func(ctx context.Context) (*models.Table, error) {
		return r.inner.GetTableBySlugInBranch(ctx, slug, branchID)
	})
}

func (r *cachedCatalogRepository) GetUserBySlug(ctx context.Context, slug string) (*models.User, error) {
	return cacheAside(ctx, r, userCacheKey(slug), func(ctx context.Context) (*models.User, error) {
		return r.inner.GetUserBySlug(ctx, slug)
	})
}

func (r *cachedCatalogRepository) GetVariantBySlug(ctx context.Context, slug string) (*models.Variant, error) {
	return r.inner.GetVariantBySlug(ctx, slug)
}

func (r *cachedCatalogRepository) GetMenuItemForProduct(ctx context.Context, branchID, productID int64, day string) (*models.MenuItem, error) {
	return r.inner.GetMenuItemForProduct(ctx, branchID, productID, day)
}

// cacheAside reads key from Redis, falling back to load on a miss. Concurrent misses of the same
// key share one load, which runs detached from the caller that started it so one cancellation
// does not fail every waiter. Cache failures are logged and never fail the lookup; misses are not cached.
func cacheAside[T any](ctx context.Context, r *cachedCatalogRepository, key string, load func(ctx context.Context) (*T, error)) (*T, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var value T
		decodeErr := gob.NewDecoder(bytes.NewReader(payload)).Decode(&value)
		if decodeErr == nil {
			return &value, nil
		}
		utils.LogError(decodeErr, "catalog cache: dropping undecodable entry "+key)
	} else if !errors.Is(err, redis.Nil) {
		utils.LogError(err, "catalog cache: read failed for "+key)
	}

	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		fresh, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(fresh); err != nil {
			utils.LogError(err, "catalog cache: encoding failed for "+key)
			return fresh, nil
		}
		if err := r.client.Set(loadCtx, key, buf.Bytes(), r.ttl).Err(); err != nil {
			utils.LogError(err, "catalog cache: write failed for "+key)
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	// Each caller gets its own copy of the shared result.
	value := *(v.(*T))
	return &value, nil
}
