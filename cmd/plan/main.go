// cmd/plan/main.go
package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/replenishment-go/internal/cache"
	"github.com/andresuchdata/replenishment-go/internal/config"
	"github.com/andresuchdata/replenishment-go/internal/domain"
	"github.com/andresuchdata/replenishment-go/internal/pipeline"
	"github.com/andresuchdata/replenishment-go/internal/repository/postgres"
	"github.com/andresuchdata/replenishment-go/internal/service"
	"github.com/andresuchdata/replenishment-go/internal/storage"
	"github.com/andresuchdata/replenishment-go/pkg/logger"
)

func main() {
	stores := flag.String("stores", "", "Comma-separated store IDs (default: all)")
	skus := flag.String("skus", "", "Comma-separated SKU IDs (default: all)")
	horizon := flag.Int("horizon", 0, "Planning horizon in days (default: configured)")
	export := flag.Bool("export", false, "Export a CSV per completed unit after the run")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall run timeout")
	flag.Parse()

	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	storeIDs, err := parseStoreIDs(*stores)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid -stores value")
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	planCache, err := cache.NewPlanCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Plan cache unavailable, continuing without caching")
		planCache = cache.NewNoopPlanCache()
	}

	var archive storage.ObjectStorage
	if cfg.Storage.Enabled {
		archive, err = storage.NewS3Client(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize plan archive storage")
		}
	}

	planService := service.NewPlanService(
		postgres.NewSnapshotRepository(db),
		postgres.NewForecastRepository(db),
		postgres.NewPolicyRepository(db),
		postgres.NewPlanRepository(db),
		planCache,
		archive,
		cfg.Engine,
		cfg.App.DataDir,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req := domain.PlanRunRequest{
		StoreIDs: storeIDs,
		SKUIDs:   parseSKUIDs(*skus),
		Horizon:  *horizon,
	}

	results, summary, err := planService.RunPlans(ctx, req)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Plan run failed")
	}
	if summary.TotalUnits == 0 {
		logger.Log.Warn().Msg("No units matched the requested filters")
		return
	}

	for _, res := range results {
		if res.Status == pipeline.UnitFailed {
			logger.Log.Error().Err(res.Err).
				Int64("store_id", res.StoreID).Str("sku_id", res.SKUID).
				Msg("Unit failed")
		}
	}

	logger.Log.Info().
		Int("total", summary.TotalUnits).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.CompletedAt.Sub(summary.StartedAt)).
		Msg("Plan run finished")

	if *export {
		exportPlans(ctx, planService, results)
	}

	if summary.Completed == 0 {
		os.Exit(1)
	}
}

func exportPlans(ctx context.Context, planService *service.PlanService, results []pipeline.UnitResult) {
	for _, res := range results {
		if res.Status != pipeline.UnitCompleted {
			continue
		}
		if _, err := planService.ExportPlanCSV(ctx, res.StoreID, res.SKUID); err != nil {
			logger.Log.Error().Err(err).
				Int64("store_id", res.StoreID).Str("sku_id", res.SKUID).
				Msg("Failed to export plan")
		}
	}
}

func parseStoreIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseSKUIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if sku := strings.TrimSpace(part); sku != "" {
			ids = append(ids, sku)
		}
	}
	return ids
}
