package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/replenishment-go/internal/cache"
	"github.com/andresuchdata/replenishment-go/internal/config"
	"github.com/andresuchdata/replenishment-go/internal/domain"
	"github.com/andresuchdata/replenishment-go/internal/pipeline"
)

type memSnapshots struct {
	snapshots map[domain.UnitKey]*domain.InventorySnapshot
}

func (m *memSnapshots) GetSnapshot(_ context.Context, storeID int64, skuID string) (*domain.InventorySnapshot, error) {
	if s, ok := m.snapshots[domain.UnitKey{StoreID: storeID, SKUID: skuID}]; ok {
		return s, nil
	}
	return &domain.InventorySnapshot{StoreID: storeID, SKUID: skuID}, nil
}

func (m *memSnapshots) ListUnits(_ context.Context, storeIDs []int64, skuIDs []string) ([]domain.UnitKey, error) {
	var keys []domain.UnitKey
	for key := range m.snapshots {
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *memSnapshots) SaveSnapshot(_ context.Context, snapshot *domain.InventorySnapshot) error {
	m.snapshots[domain.UnitKey{StoreID: snapshot.StoreID, SKUID: snapshot.SKUID}] = snapshot
	return nil
}

type memForecasts struct {
	rows map[domain.UnitKey][]domain.ForecastRecord
}

func (m *memForecasts) GetForecast(_ context.Context, storeID int64, skuID string, horizonDays int) ([]domain.ForecastRecord, error) {
	all := m.rows[domain.UnitKey{StoreID: storeID, SKUID: skuID}]
	var out []domain.ForecastRecord
	for _, row := range all {
		if row.DayOffset < horizonDays {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memForecasts) UpsertForecasts(_ context.Context, rows []domain.ForecastRecord) error {
	for _, row := range rows {
		key := domain.UnitKey{StoreID: row.StoreID, SKUID: row.SKUID}
		m.rows[key] = append(m.rows[key], row)
	}
	return nil
}

type memPolicies struct {
	params map[string]domain.PolicyParameters
}

func (m *memPolicies) GetParameters(_ context.Context, skuID string) (domain.PolicyParameters, bool, error) {
	p, ok := m.params[skuID]
	return p, ok, nil
}

func (m *memPolicies) UpsertParameters(_ context.Context, params *domain.PolicyParameters) error {
	m.params[params.SKUID] = *params
	return nil
}

type memPlans struct {
	saved map[domain.UnitKey][]domain.PlanDay
}

func (m *memPlans) SavePlan(_ context.Context, storeID int64, skuID string, _ time.Time, days []domain.PlanDay) error {
	m.saved[domain.UnitKey{StoreID: storeID, SKUID: skuID}] = days
	return nil
}

func (m *memPlans) GetLatestPlan(_ context.Context, storeID int64, skuID string) ([]domain.PlanDay, error) {
	return m.saved[domain.UnitKey{StoreID: storeID, SKUID: skuID}], nil
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		HorizonDays:        3,
		TargetCoverageDays: 2,
		ServiceLevelZ:      1.65,
		CasePackSize:       1,
		MinOrderQty:        1,
		MaxOrderQty:        1000,
		TransitDays:        1,
		DefaultShelfLife:   5,
		MinMarkdownQty:     5,
		PriceElasticity:    -2.0,
		WorkerCount:        2,
	}
}

func newTestService(t *testing.T) (*PlanService, *memPlans) {
	t.Helper()

	key := domain.UnitKey{StoreID: 1, SKUID: "SKU-1"}
	snapshots := &memSnapshots{snapshots: map[domain.UnitKey]*domain.InventorySnapshot{
		key: {
			StoreID: 1,
			SKUID:   "SKU-1",
			Batches: []domain.Batch{
				{Quantity: 8, DaysUntilExpiry: 4, Location: domain.LocationShelf},
				{Quantity: 20, DaysUntilExpiry: 9, Location: domain.LocationBackroom},
			},
		},
	}}

	forecasts := &memForecasts{rows: map[domain.UnitKey][]domain.ForecastRecord{}}
	for d := 0; d < 3; d++ {
		forecasts.rows[key] = append(forecasts.rows[key], domain.ForecastRecord{
			StoreID: 1, SKUID: "SKU-1", DayOffset: d, MeanDemand: 5, StdDemand: 1,
		})
	}

	plans := &memPlans{saved: map[domain.UnitKey][]domain.PlanDay{}}
	svc := NewPlanService(
		snapshots,
		forecasts,
		&memPolicies{params: map[string]domain.PolicyParameters{}},
		plans,
		cache.NewNoopPlanCache(),
		nil,
		testEngineConfig(),
		t.TempDir(),
	)
	return svc, plans
}

func TestPlanService_RunPersistsPlans(t *testing.T) {
	svc, plans := newTestService(t)

	results, summary, err := svc.RunPlans(context.Background(), domain.PlanRunRequest{})
	if err != nil {
		t.Fatalf("RunPlans failed: %v", err)
	}
	if summary.Completed != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 completed", summary)
	}
	if results[0].Status != pipeline.UnitCompleted {
		t.Fatalf("unit status = %s", results[0].Status)
	}

	saved := plans.saved[domain.UnitKey{StoreID: 1, SKUID: "SKU-1"}]
	if len(saved) != 3 {
		t.Fatalf("persisted %d plan days, want 3", len(saved))
	}
	for i, day := range saved {
		if day.DayOffset != i {
			t.Errorf("day %d offset = %d", i, day.DayOffset)
		}
	}
}

func TestPlanService_GetPlanReadsThrough(t *testing.T) {
	svc, _ := newTestService(t)

	if _, _, err := svc.RunPlans(context.Background(), domain.PlanRunRequest{}); err != nil {
		t.Fatalf("RunPlans failed: %v", err)
	}

	days, err := svc.GetPlan(context.Background(), 1, "SKU-1")
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("got %d days, want 3", len(days))
	}
}

func TestPlanService_ExportPlanCSV(t *testing.T) {
	svc, _ := newTestService(t)

	if _, _, err := svc.RunPlans(context.Background(), domain.PlanRunRequest{}); err != nil {
		t.Fatalf("RunPlans failed: %v", err)
	}

	payload, err := svc.ExportPlanCSV(context.Background(), 1, "SKU-1")
	if err != nil {
		t.Fatalf("ExportPlanCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if len(lines) != 4 { // header + 3 days
		t.Fatalf("csv has %d lines, want 4", len(lines))
	}
	if !strings.HasPrefix(lines[0], "day_offset,recommended_shelf_qty") {
		t.Errorf("unexpected header: %s", lines[0])
	}
}

func TestPlanService_ExportMissingPlanFails(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.ExportPlanCSV(context.Background(), 9, "SKU-NONE"); err == nil {
		t.Fatal("expected error for missing plan")
	}
}

func TestPlanService_ExpiryBuckets(t *testing.T) {
	svc, _ := newTestService(t)

	buckets, expiringQty, err := svc.ExpiryBuckets(context.Background(), 1, "SKU-1", 4)
	if err != nil {
		t.Fatalf("ExpiryBuckets failed: %v", err)
	}
	if buckets.FourToSevenDays != 8 {
		t.Errorf("4-7 day bucket = %v, want 8", buckets.FourToSevenDays)
	}
	if buckets.EightPlusDays != 20 {
		t.Errorf("8+ day bucket = %v, want 20", buckets.EightPlusDays)
	}
	if expiringQty != 8 {
		t.Errorf("expiring within 4 days = %v, want 8", expiringQty)
	}
}
