package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenishment-go/internal/config"
	"github.com/andresuchdata/replenishment-go/internal/domain"
)

const (
	planKeyPrefix     = "plan:latest"
	planScanBatchSize = 100
)

// PlanCache caches the latest plan per (store, SKU). A batch run
// invalidates everything; reads go cache-aside through the service.
type PlanCache interface {
	GetPlan(ctx context.Context, storeID int64, skuID string) ([]domain.PlanDay, bool, error)
	SetPlan(ctx context.Context, storeID int64, skuID string, days []domain.PlanDay) error
	InvalidatePlan(ctx context.Context, storeID int64, skuID string) error
	InvalidateAll(ctx context.Context) error
}

type redisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPlanCache struct{}

func NewPlanCache(cfg config.CacheConfig) (PlanCache, error) {
	if !cfg.Enabled {
		return &noopPlanCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisPlanCache{client: client, ttl: ttl}, nil
}

func NewNoopPlanCache() PlanCache {
	return &noopPlanCache{}
}

func (c *redisPlanCache) GetPlan(ctx context.Context, storeID int64, skuID string) ([]domain.PlanDay, bool, error) {
	payload, err := c.client.Get(ctx, buildPlanKey(storeID, skuID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var days []domain.PlanDay
	if err := json.Unmarshal(payload, &days); err != nil {
		return nil, false, fmt.Errorf("decode plan cache: %w", err)
	}

	return days, true, nil
}

func (c *redisPlanCache) SetPlan(ctx context.Context, storeID int64, skuID string, days []domain.PlanDay) error {
	payload, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("encode plan cache: %w", err)
	}

	if err := c.client.Set(ctx, buildPlanKey(storeID, skuID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisPlanCache) InvalidatePlan(ctx context.Context, storeID int64, skuID string) error {
	return c.client.Del(ctx, buildPlanKey(storeID, skuID)).Err()
}

func (c *redisPlanCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, planKeyPrefix, planScanBatchSize)
}

func (n *noopPlanCache) GetPlan(ctx context.Context, storeID int64, skuID string) ([]domain.PlanDay, bool, error) {
	return nil, false, nil
}

func (n *noopPlanCache) SetPlan(ctx context.Context, storeID int64, skuID string, days []domain.PlanDay) error {
	return nil
}

func (n *noopPlanCache) InvalidatePlan(ctx context.Context, storeID int64, skuID string) error {
	return nil
}

func (n *noopPlanCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildPlanKey(storeID int64, skuID string) string {
	return fmt.Sprintf("%s:%d:%s", planKeyPrefix, storeID, skuID)
}
