package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

func flatForecast(days int, mean, std float64) []domain.ForecastRecord {
	rows := make([]domain.ForecastRecord, 0, days)
	for d := 0; d < days; d++ {
		rows = append(rows, domain.ForecastRecord{
			StoreID:    1,
			SKUID:      "SKU-1",
			DayOffset:  d,
			MeanDemand: mean,
			StdDemand:  std,
		})
	}
	return rows
}

func mustAdapt(t *testing.T, rows []domain.ForecastRecord) *ForecastSeries {
	t.Helper()
	series, err := AdaptForecast(1, "SKU-1", rows)
	if err != nil {
		t.Fatalf("AdaptForecast failed: %v", err)
	}
	return series
}

func scenarioSnapshot() domain.InventorySnapshot {
	// shelf=5, backroom=20, batches [(10, 2d), (15, 6d)] with the 2-day
	// batch split across both locations.
	return domain.InventorySnapshot{
		StoreID: 1,
		SKUID:   "SKU-1",
		Batches: []domain.Batch{
			{Quantity: 5, DaysUntilExpiry: 2, Location: domain.LocationShelf},
			{Quantity: 5, DaysUntilExpiry: 2, Location: domain.LocationBackroom},
			{Quantity: 15, DaysUntilExpiry: 6, Location: domain.LocationBackroom},
		},
	}
}

func TestSimulator_DayZeroScenario(t *testing.T) {
	p := baseParams()
	sim, err := NewSimulator(3)
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}

	result, err := sim.Run(p, scenarioSnapshot(), mustAdapt(t, flatForecast(3, 8, 2)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	day0 := result.Days[0]
	if !almostEqual(day0.RecommendedShelfQty, 11.3) {
		t.Errorf("day 0 RecommendedShelfQty = %v, want 11.3", day0.RecommendedShelfQty)
	}
	if !almostEqual(day0.RefillQty, 6.3) {
		t.Errorf("day 0 RefillQty = %v, want 6.3", day0.RefillQty)
	}
	if day0.OrderQty != 0 {
		t.Errorf("day 0 OrderQty = %v, want 0", day0.OrderQty)
	}
	// The near-expiry batch (1 day left after day-0 aging) fires the
	// markdown tier.
	if day0.Markdown == nil {
		t.Fatal("expected a day 0 markdown action for the near-expiry batch")
	}
	if day0.Markdown.AtCostPrice == false && day0.Markdown.DiscountedPrice < p.CostPerUnit {
		t.Errorf("day 0 markdown priced below cost without flag: %+v", day0.Markdown)
	}
}

func TestSimulator_OrderArrivesAfterTransit(t *testing.T) {
	// backroom=0, shelf=3, mean=10: nothing can be transferred on day 0
	// and the order placed on day 0 lands on day transit_days.
	p := baseParams()
	p.CasePackSize = 6

	snapshot := domain.InventorySnapshot{
		StoreID: 1,
		SKUID:   "SKU-1",
		Batches: []domain.Batch{
			{Quantity: 3, DaysUntilExpiry: 5, Location: domain.LocationShelf},
		},
	}

	sim, err := NewSimulator(4)
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}
	result, err := sim.Run(p, snapshot, mustAdapt(t, flatForecast(4, 10, 2)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	day0 := result.Days[0]
	if day0.OrderQty <= 0 {
		t.Fatalf("day 0 OrderQty = %v, want a positive case-pack order", day0.OrderQty)
	}
	if rem := day0.OrderQty / p.CasePackSize; rem != float64(int(rem)) {
		t.Errorf("day 0 OrderQty %v is not a case-pack multiple of %v", day0.OrderQty, p.CasePackSize)
	}
	// The order is in transit: day 0 ends with an empty backroom and the
	// shelf drained by sales.
	if !almostEqual(day0.EndBackroomQty, 0) {
		t.Errorf("day 0 EndBackroomQty = %v, want 0 (order not yet arrived)", day0.EndBackroomQty)
	}
	// transit_days=2: the delivery lands in the backroom on day 2.
	day1 := result.Days[1]
	if !almostEqual(day1.EndBackroomQty, 0) {
		t.Errorf("day 1 EndBackroomQty = %v, want 0", day1.EndBackroomQty)
	}
	day2 := result.Days[2]
	if day2.EndBackroomQty+day2.EndShelfQty <= day1.EndBackroomQty+day1.EndShelfQty {
		t.Errorf("day 2 should receive the in-transit order: day1 end=%v day2 end=%v",
			day1.EndBackroomQty+day1.EndShelfQty, day2.EndBackroomQty+day2.EndShelfQty)
	}
}

func TestSimulator_Conservation(t *testing.T) {
	p := baseParams()
	sim, err := NewSimulator(7)
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}

	snapshot := scenarioSnapshot()
	initial := 0.0
	for _, b := range snapshot.Batches {
		initial += b.Quantity
	}

	result, err := sim.Run(p, snapshot, mustAdapt(t, flatForecast(7, 8, 2)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	waste := 0.0
	sold := 0.0
	arrivals := 0.0
	ordered := 0.0
	for _, day := range result.Days {
		waste += day.ProjectedWasteQty
		sold += day.ExpectedSalesQty
		ordered += day.OrderQty
	}
	// Everything ordered inside the horizon either arrived or is still in
	// transit at the end.
	arrivals = ordered - result.FinalInTransit

	onHand := result.FinalShelf + result.FinalBackroom
	if !almostEqual(onHand+waste+sold, initial+arrivals) {
		t.Errorf("conservation broken: on-hand %v + waste %v + sold %v != initial %v + arrivals %v",
			onHand, waste, sold, initial, arrivals)
	}
}

func TestSimulator_IdempotentReRun(t *testing.T) {
	p := baseParams()
	sim, err := NewSimulator(5)
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}

	first, err := sim.Run(p, scenarioSnapshot(), mustAdapt(t, flatForecast(5, 8, 2)))
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := sim.Run(p, scenarioSnapshot(), mustAdapt(t, flatForecast(5, 8, 2)))
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if !reflect.DeepEqual(first.Days, second.Days) {
		t.Error("identical inputs produced different plans")
	}
}

func TestSimulator_MissingForecastDayFails(t *testing.T) {
	p := baseParams()
	sim, err := NewSimulator(5)
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}

	// Only 3 of 5 days available: the run must fail, not assume zero
	// demand for the missing days.
	_, err = sim.Run(p, scenarioSnapshot(), mustAdapt(t, flatForecast(3, 8, 2)))
	var unavailable *domain.ForecastUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ForecastUnavailableError, got %v", err)
	}
	if unavailable.DayOffset != 3 {
		t.Errorf("failed day = %d, want 3", unavailable.DayOffset)
	}
}

func TestSimulator_InvalidParametersFailFast(t *testing.T) {
	p := baseParams()
	p.TargetCoverageDays = 0
	sim, err := NewSimulator(3)
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}

	_, err = sim.Run(p, scenarioSnapshot(), mustAdapt(t, flatForecast(3, 8, 2)))
	var invalid *domain.InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
}

func TestSimulator_ExpiringStockTriggersReplacement(t *testing.T) {
	// 30 shelf units with 2 days of life (1 after day-0 aging) against
	// demand 8/day: only 8 can sell before expiry, so day 0 must place a
	// replacement order toward the 24-unit target instead of treating the
	// full shelf as coverage.
	p := baseParams()
	p.TargetCoverageDays = 3
	p.ServiceLevelZ = 0

	snapshot := domain.InventorySnapshot{
		StoreID: 1,
		SKUID:   "SKU-1",
		Batches: []domain.Batch{
			{Quantity: 30, DaysUntilExpiry: 2, Location: domain.LocationShelf},
		},
	}

	sim, err := NewSimulator(1)
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}
	result, err := sim.Run(p, snapshot, mustAdapt(t, flatForecast(1, 8, 0)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	day0 := result.Days[0]
	if !almostEqual(day0.RefillQty, 0) {
		t.Errorf("day 0 RefillQty = %v, want 0 (shelf physically full)", day0.RefillQty)
	}
	if !almostEqual(day0.OrderQty, 16) {
		t.Errorf("day 0 OrderQty = %v, want 16 replacing the doomed stock", day0.OrderQty)
	}
}

func TestSimulator_WasteRecordedOnExpiry(t *testing.T) {
	p := baseParams()
	snapshot := domain.InventorySnapshot{
		StoreID: 1,
		SKUID:   "SKU-1",
		Batches: []domain.Batch{
			{Quantity: 4, DaysUntilExpiry: 0, Location: domain.LocationShelf},
			{Quantity: 10, DaysUntilExpiry: 9, Location: domain.LocationBackroom},
		},
	}

	sim, err := NewSimulator(2)
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}
	result, err := sim.Run(p, snapshot, mustAdapt(t, flatForecast(2, 1, 0.5)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The 0-day batch expires during day 0 aging.
	if !almostEqual(result.Days[0].ProjectedWasteQty, 4) {
		t.Errorf("day 0 waste = %v, want 4", result.Days[0].ProjectedWasteQty)
	}
	if result.Days[0].ProjectedLossAmount < 4*p.CostPerUnit {
		t.Errorf("day 0 loss %v should cover the waste write-off %v",
			result.Days[0].ProjectedLossAmount, 4*p.CostPerUnit)
	}
}
