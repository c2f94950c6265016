package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nft-inventory/internal/logging"
	"github.com/nft-inventory/internal/service"
	"github.com/redis/go-redis/v9"
)

// InventoryCache caches grouped inventory responses in Redis so repeated
// reads between syncs skip Postgres entirely. Entries are short-lived; every
// write path through the services invalidates the owner's keys.
type InventoryCache struct {
	redis  *RedisCache
	ttl    time.Duration
	logger *logging.Logger
}

// NewInventoryCache creates an inventory cache with the given TTL.
func NewInventoryCache(redis *RedisCache, ttl time.Duration, logger *logging.Logger) *InventoryCache {
	return &InventoryCache{redis: redis, ttl: ttl, logger: logger}
}

// inventoryKey builds the cache key for one user+address view. The address
// component is "all" for whole-profile reads.
func inventoryKey(uid, address string) string {
	if address == "" {
		address = "all"
	}
	return fmt.Sprintf("inv:%s:%s", uid, address)
}

// GetGrouped returns the cached grouped inventory for the user and address,
// with a hit indicator. Cache errors degrade to a miss.
func (c *InventoryCache) GetGrouped(ctx context.Context, uid, address string) (*service.GroupedInventory, bool, error) {
	data, err := c.redis.Get(ctx, inventoryKey(uid, address))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		c.logger.WithError(err).Warn("Inventory cache read failed")
		return nil, false, nil
	}

	var inv service.GroupedInventory
	if err := json.Unmarshal([]byte(data), &inv); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		_ = c.redis.Del(ctx, inventoryKey(uid, address))
		return nil, false, nil
	}

	return &inv, true, nil
}

// SetGrouped stores the grouped inventory under the user+address key.
func (c *InventoryCache) SetGrouped(ctx context.Context, uid, address string, inv *service.GroupedInventory) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal grouped inventory: %w", err)
	}

	if err := c.redis.Set(ctx, inventoryKey(uid, address), data, c.ttl); err != nil {
		return fmt.Errorf("failed to cache grouped inventory: %w", err)
	}

	return nil
}

// Invalidate drops every cached view for the user. Called after any write
// that changes ownership.
func (c *InventoryCache) Invalidate(ctx context.Context, uid string) error {
	keys, err := c.redis.Keys(ctx, fmt.Sprintf("inv:%s:*", uid))
	if err != nil {
		return fmt.Errorf("failed to list inventory cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate inventory cache: %w", err)
	}

	return nil
}
