package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itamhq/inventory/internal/core/domain"
)

const dashboardKey = "inventory:dashboard"

// RedisCache caches dashboard aggregates. Stock state itself is never cached;
// the database stays the source of truth.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetDashboard(ctx context.Context) (*domain.DashboardData, bool, error) {
	raw, err := c.client.Get(ctx, dashboardKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var data domain.DashboardData
	if err := json.Unmarshal(raw, &data); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		c.client.Del(ctx, dashboardKey)
		return nil, false, nil
	}
	return &data, true, nil
}

func (c *RedisCache) SetDashboard(ctx context.Context, data *domain.DashboardData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, dashboardKey, raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, dashboardKey).Err()
}
