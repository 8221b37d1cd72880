package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

// SnapshotRepository loads and stores per-(store, SKU) batch inventory.
type SnapshotRepository interface {
	GetSnapshot(ctx context.Context, storeID int64, skuID string) (*domain.InventorySnapshot, error)
	ListUnits(ctx context.Context, storeIDs []int64, skuIDs []string) ([]domain.UnitKey, error)
	SaveSnapshot(ctx context.Context, snapshot *domain.InventorySnapshot) error
}

// ForecastRepository serves external forecast rows for a planning horizon.
type ForecastRepository interface {
	GetForecast(ctx context.Context, storeID int64, skuID string, horizonDays int) ([]domain.ForecastRecord, error)
	UpsertForecasts(ctx context.Context, rows []domain.ForecastRecord) error
}

// PolicyRepository serves per-SKU policy parameters. A SKU without a row
// gets engine defaults from config; found reports which case applies.
type PolicyRepository interface {
	GetParameters(ctx context.Context, skuID string) (params domain.PolicyParameters, found bool, err error)
	UpsertParameters(ctx context.Context, params *domain.PolicyParameters) error
}

// PlanRepository persists simulator output. A new plan for a unit fully
// replaces the previous one.
type PlanRepository interface {
	SavePlan(ctx context.Context, storeID int64, skuID string, runAt time.Time, days []domain.PlanDay) error
	GetLatestPlan(ctx context.Context, storeID int64, skuID string) ([]domain.PlanDay, error)
}
