package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenishment-go/internal/cache"
	"github.com/andresuchdata/replenishment-go/internal/config"
	"github.com/andresuchdata/replenishment-go/internal/domain"
	"github.com/andresuchdata/replenishment-go/internal/engine"
	"github.com/andresuchdata/replenishment-go/internal/pipeline"
	"github.com/andresuchdata/replenishment-go/internal/repository"
	"github.com/andresuchdata/replenishment-go/internal/storage"
)

// PlanService drives batch planning runs and serves the resulting plans.
type PlanService struct {
	snapshots repository.SnapshotRepository
	forecasts repository.ForecastRepository
	policies  repository.PolicyRepository
	plans     repository.PlanRepository
	planCache cache.PlanCache
	archive   storage.ObjectStorage // nil disables archiving
	engineCfg config.EngineConfig
	dataDir   string
}

func NewPlanService(
	snapshots repository.SnapshotRepository,
	forecasts repository.ForecastRepository,
	policies repository.PolicyRepository,
	plans repository.PlanRepository,
	planCache cache.PlanCache,
	archive storage.ObjectStorage,
	engineCfg config.EngineConfig,
	dataDir string,
) *PlanService {
	return &PlanService{
		snapshots: snapshots,
		forecasts: forecasts,
		policies:  policies,
		plans:     plans,
		planCache: planCache,
		archive:   archive,
		engineCfg: engineCfg,
		dataDir:   dataDir,
	}
}

// RunPlans plans every requested unit, persists the successful plans and
// refreshes the cache. Failed units are reported, not fatal.
func (s *PlanService) RunPlans(ctx context.Context, req domain.PlanRunRequest) ([]pipeline.UnitResult, pipeline.RunSummary, error) {
	horizon := req.Horizon
	if horizon <= 0 {
		horizon = s.engineCfg.HorizonDays
	}

	keys, err := s.snapshots.ListUnits(ctx, req.StoreIDs, req.SKUIDs)
	if err != nil {
		return nil, pipeline.RunSummary{}, fmt.Errorf("failed to list units: %w", err)
	}
	if len(keys) == 0 {
		return nil, pipeline.RunSummary{}, nil
	}

	units := make([]pipeline.Unit, 0, len(keys))
	for _, key := range keys {
		unit, err := s.assembleUnit(ctx, key, horizon)
		if err != nil {
			return nil, pipeline.RunSummary{}, fmt.Errorf("failed to assemble unit %d/%s: %w", key.StoreID, key.SKUID, err)
		}
		units = append(units, unit)
	}

	runner, err := pipeline.NewRunner(pipeline.Config{
		HorizonDays: horizon,
		WorkerCount: s.engineCfg.WorkerCount,
	})
	if err != nil {
		return nil, pipeline.RunSummary{}, err
	}

	results, summary, err := runner.Run(ctx, units)
	if err != nil {
		return results, summary, err
	}

	runAt := time.Now()
	for _, res := range results {
		if res.Status != pipeline.UnitCompleted {
			continue
		}
		if err := s.plans.SavePlan(ctx, res.StoreID, res.SKUID, runAt, res.Result.Days); err != nil {
			return results, summary, fmt.Errorf("failed to persist plan for %d/%s: %w", res.StoreID, res.SKUID, err)
		}
		if err := s.planCache.SetPlan(ctx, res.StoreID, res.SKUID, res.Result.Days); err != nil {
			log.Warn().Err(err).Int64("store_id", res.StoreID).Str("sku_id", res.SKUID).
				Msg("failed to refresh plan cache")
		}
	}

	return results, summary, nil
}

// GetPlan returns the latest plan for a unit, cache-aside.
func (s *PlanService) GetPlan(ctx context.Context, storeID int64, skuID string) ([]domain.PlanDay, error) {
	if days, ok, err := s.planCache.GetPlan(ctx, storeID, skuID); err != nil {
		log.Warn().Err(err).Msg("plan cache read failed, falling back to database")
	} else if ok {
		return days, nil
	}

	days, err := s.plans.GetLatestPlan(ctx, storeID, skuID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	if len(days) > 0 {
		if err := s.planCache.SetPlan(ctx, storeID, skuID, days); err != nil {
			log.Warn().Err(err).Msg("failed to populate plan cache")
		}
	}

	return days, nil
}

// ExportPlanCSV renders the latest plan as CSV, writes it under the data
// directory and, when an archive is configured, uploads a copy.
func (s *PlanService) ExportPlanCSV(ctx context.Context, storeID int64, skuID string) ([]byte, error) {
	days, err := s.GetPlan(ctx, storeID, skuID)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no plan found for store %d sku %s", storeID, skuID)
	}

	payload, err := renderPlanCSV(days)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("plan_%d_%s.csv", storeID, skuID)
	exportPath := filepath.Join(s.dataDir, name)
	if err := os.WriteFile(exportPath, payload, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write plan export: %w", err)
	}

	if s.archive != nil {
		key := fmt.Sprintf("plans/%s/%s", time.Now().Format("2006-01-02"), name)
		if err := s.archive.UploadObject(ctx, key, payload); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to archive plan export")
		}
	}

	return payload, nil
}

// ExpiryBuckets reports on-hand quantity by remaining shelf life for one
// unit's current snapshot, plus the total expiring within the given
// window.
func (s *PlanService) ExpiryBuckets(ctx context.Context, storeID int64, skuID string, withinDays int) (domain.ExpiryBuckets, float64, error) {
	snapshot, err := s.snapshots.GetSnapshot(ctx, storeID, skuID)
	if err != nil {
		return domain.ExpiryBuckets{}, 0, fmt.Errorf("failed to load snapshot: %w", err)
	}

	inv, err := engine.NewBatchInventory(*snapshot)
	if err != nil {
		return domain.ExpiryBuckets{}, 0, fmt.Errorf("failed to build inventory: %w", err)
	}

	return inv.ExpiryBuckets(), inv.ExpiringWithin(withinDays), nil
}

func (s *PlanService) assembleUnit(ctx context.Context, key domain.UnitKey, horizon int) (pipeline.Unit, error) {
	snapshot, err := s.snapshots.GetSnapshot(ctx, key.StoreID, key.SKUID)
	if err != nil {
		return pipeline.Unit{}, err
	}

	rows, err := s.forecasts.GetForecast(ctx, key.StoreID, key.SKUID, horizon)
	if err != nil {
		return pipeline.Unit{}, err
	}
	series, err := engine.AdaptForecast(key.StoreID, key.SKUID, rows)
	if err != nil {
		return pipeline.Unit{}, err
	}

	params, found, err := s.policies.GetParameters(ctx, key.SKUID)
	if err != nil {
		return pipeline.Unit{}, err
	}
	if !found {
		params = s.defaultParameters(key.SKUID)
	}

	return pipeline.Unit{
		StoreID:  key.StoreID,
		SKUID:    key.SKUID,
		Snapshot: *snapshot,
		Params:   params,
		Forecast: series,
	}, nil
}

// defaultParameters builds policy parameters from configured engine
// defaults for SKUs without a stored row.
func (s *PlanService) defaultParameters(skuID string) domain.PolicyParameters {
	return domain.PolicyParameters{
		SKUID:              skuID,
		TargetCoverageDays: s.engineCfg.TargetCoverageDays,
		ServiceLevelZ:      s.engineCfg.ServiceLevelZ,
		CasePackSize:       s.engineCfg.CasePackSize,
		MinOrderQty:        s.engineCfg.MinOrderQty,
		MaxOrderQty:        s.engineCfg.MaxOrderQty,
		TransitDays:        s.engineCfg.TransitDays,
		ShelfLifeDays:      s.engineCfg.DefaultShelfLife,
		MarkdownTiers:      s.engineCfg.MarkdownTiers,
		MinMarkdownQty:     s.engineCfg.MinMarkdownQty,
		PriceElasticity:    s.engineCfg.PriceElasticity,
	}
}

func renderPlanCSV(days []domain.PlanDay) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"day_offset", "recommended_shelf_qty", "refill_qty", "order_qty",
		"overstock_risk", "markdown_discount_pct", "markdown_qty",
		"projected_waste_qty", "projected_loss_amount", "expected_sales_qty",
		"end_shelf_qty", "end_backroom_qty",
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, day := range days {
		discount, affected := "", ""
		if day.Markdown != nil {
			discount = fmt.Sprintf("%.1f", day.Markdown.DiscountPercent)
			affected = fmt.Sprintf("%.2f", day.Markdown.AffectedQty)
		}
		record := []string{
			strconv.Itoa(day.DayOffset),
			fmt.Sprintf("%.2f", day.RecommendedShelfQty),
			fmt.Sprintf("%.2f", day.RefillQty),
			fmt.Sprintf("%.2f", day.OrderQty),
			strconv.FormatBool(day.OverstockRisk),
			discount,
			affected,
			fmt.Sprintf("%.2f", day.ProjectedWasteQty),
			fmt.Sprintf("%.2f", day.ProjectedLossAmount),
			fmt.Sprintf("%.2f", day.ExpectedSalesQty),
			fmt.Sprintf("%.2f", day.EndShelfQty),
			fmt.Sprintf("%.2f", day.EndBackroomQty),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
