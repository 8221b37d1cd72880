package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/andresuchdata/replenishment-go/internal/domain"
	"github.com/andresuchdata/replenishment-go/internal/engine"
)

func testParams(skuID string) domain.PolicyParameters {
	return domain.PolicyParameters{
		SKUID:              skuID,
		Category:           "fruits",
		TargetCoverageDays: 2,
		ServiceLevelZ:      1.65,
		CasePackSize:       1,
		MinOrderQty:        1,
		MaxOrderQty:        1000,
		TransitDays:        1,
		ShelfLifeDays:      5,
		MinMarkdownQty:     5,
		PriceElasticity:    -2.0,
		CostPerUnit:        1.0,
		CurrentPrice:       2.0,
	}
}

func testUnit(t *testing.T, storeID int64, skuID string, forecastDays int) Unit {
	t.Helper()
	rows := make([]domain.ForecastRecord, forecastDays)
	for d := 0; d < forecastDays; d++ {
		rows[d] = domain.ForecastRecord{DayOffset: d, MeanDemand: 4, StdDemand: 1}
	}
	series, err := engine.AdaptForecast(storeID, skuID, rows)
	if err != nil {
		t.Fatalf("AdaptForecast failed: %v", err)
	}
	return Unit{
		StoreID: storeID,
		SKUID:   skuID,
		Snapshot: domain.InventorySnapshot{
			StoreID: storeID,
			SKUID:   skuID,
			Batches: []domain.Batch{
				{Quantity: 10, DaysUntilExpiry: 6, Location: domain.LocationShelf},
				{Quantity: 20, DaysUntilExpiry: 8, Location: domain.LocationBackroom},
			},
		},
		Params:   testParams(skuID),
		Forecast: series,
	}
}

func TestRunner_AllUnitsComplete(t *testing.T) {
	runner, err := NewRunner(Config{HorizonDays: 3, WorkerCount: 4})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	units := make([]Unit, 10)
	for i := range units {
		units[i] = testUnit(t, int64(i+1), fmt.Sprintf("SKU-%d", i), 3)
	}

	results, summary, err := runner.Run(context.Background(), units)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Completed != 10 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 10 completed", summary)
	}
	// Results keep input order regardless of worker scheduling.
	for i, res := range results {
		if res.StoreID != int64(i+1) {
			t.Errorf("result %d store = %d, want %d", i, res.StoreID, i+1)
		}
		if res.Status != UnitCompleted || res.Result == nil {
			t.Errorf("result %d = %+v, want completed with output", i, res)
		}
		if res.Result != nil && len(res.Result.Days) != 3 {
			t.Errorf("result %d has %d plan days, want 3", i, len(res.Result.Days))
		}
	}
}

func TestRunner_FailedUnitIsolated(t *testing.T) {
	runner, err := NewRunner(Config{HorizonDays: 5, WorkerCount: 2})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	units := []Unit{
		testUnit(t, 1, "SKU-OK", 5),
		testUnit(t, 2, "SKU-SHORT", 2), // forecast ends before the horizon
		testUnit(t, 3, "SKU-OK-2", 5),
	}

	results, summary, err := runner.Run(context.Background(), units)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Completed != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 2 completed 1 failed", summary)
	}

	if results[1].Status != UnitFailed {
		t.Fatalf("short-forecast unit status = %s, want failed", results[1].Status)
	}
	var unavailable *domain.ForecastUnavailableError
	if !errors.As(results[1].Err, &unavailable) {
		t.Errorf("unit error = %v, want ForecastUnavailableError", results[1].Err)
	}
	if results[0].Status != UnitCompleted || results[2].Status != UnitCompleted {
		t.Error("sibling units should complete despite the failure")
	}
}

func TestRunner_Deterministic(t *testing.T) {
	runner, err := NewRunner(Config{HorizonDays: 4, WorkerCount: 3})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	units := []Unit{testUnit(t, 1, "SKU-A", 4), testUnit(t, 2, "SKU-B", 4)}

	first, _, err := runner.Run(context.Background(), units)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, _, err := runner.Run(context.Background(), units)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	for i := range first {
		a, b := first[i].Result, second[i].Result
		if a == nil || b == nil {
			t.Fatalf("unit %d missing result", i)
		}
		if a.TotalSalesQty != b.TotalSalesQty || a.TotalWasteQty != b.TotalWasteQty {
			t.Errorf("unit %d diverged between runs: %+v vs %+v", i, a, b)
		}
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	runner, err := NewRunner(Config{HorizonDays: 3, WorkerCount: 1})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	units := []Unit{testUnit(t, 1, "SKU-A", 3), testUnit(t, 2, "SKU-B", 3)}
	results, _, runErr := runner.Run(ctx, units)
	if runErr == nil {
		t.Fatal("expected context error")
	}
	for i, res := range results {
		if res.Status == UnitCompleted {
			continue // a unit may slip in before cancellation is observed
		}
		if res.Status != UnitFailed {
			t.Errorf("result %d status = %q, want failed", i, res.Status)
		}
	}
}

func TestNewRunner_InvalidHorizon(t *testing.T) {
	if _, err := NewRunner(Config{HorizonDays: 0, WorkerCount: 2}); err == nil {
		t.Fatal("expected error for zero horizon")
	}
}
