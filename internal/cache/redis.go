package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/tablebooking/config"
	"github.com/Domenick1991/tablebooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client       *redis.Client
	inventoryTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, inventoryTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:       redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		inventoryTTL: inventoryTTL,
	}
}

func (c *RedisCache) GetInventory(ctx context.Context, restaurantID string) (*domain.Inventory, error) {
	data, err := c.client.Get(ctx, inventoryKey(restaurantID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var inv domain.Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *RedisCache) SetInventory(ctx context.Context, restaurantID string, inv domain.Inventory) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, inventoryKey(restaurantID), payload, c.inventoryTTL).Err()
}

func (c *RedisCache) InvalidateInventory(ctx context.Context, restaurantID string) error {
	return c.client.Del(ctx, inventoryKey(restaurantID)).Err()
}

// AcquireTableLock takes a short-lived hold on a table while an
// allocation is being persisted. Best-effort only: it narrows the
// read-then-write race between two concurrent allocations, it does not
// eliminate it.
func (c *RedisCache) AcquireTableLock(ctx context.Context, restaurantID string, zone domain.Zone, tableID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, tableLockKey(restaurantID, zone, tableID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseTableLock(ctx context.Context, restaurantID string, zone domain.Zone, tableID string) error {
	return c.client.Del(ctx, tableLockKey(restaurantID, zone, tableID)).Err()
}

func inventoryKey(restaurantID string) string {
	return fmt.Sprintf("cache:inventory:%s", restaurantID)
}

func tableLockKey(restaurantID string, zone domain.Zone, tableID string) string {
	return fmt.Sprintf("lock:restaurant:%s:%s:%s", restaurantID, zone, tableID)
}
