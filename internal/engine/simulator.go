package engine

import (
	"math"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

// Simulator rolls one (store, SKU) inventory forward over an N-day
// horizon, producing the full refill, order and markdown plan. A single
// run is strictly sequential: each day's transition depends on the
// previous day's end state. Re-running with fresh actuals always restarts
// from day zero; there is no incremental patch mode, which keeps simulated
// and actual state from drifting apart.
type Simulator struct {
	horizon int
}

// SimulationResult is the immutable output of one horizon run.
type SimulationResult struct {
	Days           []domain.PlanDay
	TotalWasteQty  float64
	TotalSalesQty  float64
	TotalLossAmt   float64
	FinalShelf     float64
	FinalBackroom  float64
	FinalInTransit float64
}

// NewSimulator creates a simulator for the given horizon length.
func NewSimulator(horizonDays int) (*Simulator, error) {
	if horizonDays <= 0 {
		return nil, &domain.InvalidParameterError{Field: "horizon_days", Reason: "must be positive"}
	}
	return &Simulator{horizon: horizonDays}, nil
}

// Run executes the day-by-day state machine for one unit. Parameters are
// validated up front so the per-day transitions are pure arithmetic; any
// missing forecast day aborts the unit's plan.
func (s *Simulator) Run(params domain.PolicyParameters, snapshot domain.InventorySnapshot, series *ForecastSeries) (*SimulationResult, error) {
	if err := ValidatePolicyParameters(params); err != nil {
		return nil, err
	}

	inv, err := NewBatchInventory(snapshot)
	if err != nil {
		return nil, err
	}

	result := &SimulationResult{Days: make([]domain.PlanDay, 0, s.horizon)}

	for t := 0; t < s.horizon; t++ {
		// 1. Age every batch and sweep expired stock into waste. Runs
		// exactly once per day, before any refill or order logic.
		waste := inv.AgeOneDay()
		result.TotalWasteQty += waste

		// 2. Land in-transit deliveries due today in the backroom.
		inv.ReceiveDueArrivals(t, params.ShelfLifeDays)

		// 3. Evaluate the replenishment policy against today's forecast.
		fc, err := series.Point(t)
		if err != nil {
			return nil, err
		}

		earliest, hasBatches := inv.EarliestExpiry()
		decision, err := EvaluateReplenishment(params, fc, ShelfState{
			ShelfQty:       inv.ShelfQty(),
			BackroomQty:    inv.BackroomQty(),
			InTransitQty:   inv.InTransitTotal(),
			ExpiringQty:    inv.UnsellableBeforeExpiry(fc.MeanDemand),
			EarliestExpiry: earliest,
			HasBatches:     hasBatches,
		})
		if err != nil {
			return nil, err
		}

		// 4. Refill the shelf from the backroom; a new order travels for
		// transit_days and cannot satisfy today's shortfall.
		if decision.Transferable > 0 {
			if err := inv.Transfer(decision.Transferable); err != nil {
				return nil, err
			}
		}
		if decision.OrderQty > 0 {
			inv.AppendInTransit(decision.OrderQty, t+params.TransitDays)
		}

		// 5. Price near-expiry stock.
		markdown, projectedLoss := EvaluateMarkdown(params, inv.Batches(), fc.MeanDemand)
		projectedLoss += waste * params.CostPerUnit
		result.TotalLossAmt += projectedLoss

		// 6. Withdraw expected sales from the shelf, FEFO, to keep the
		// projected state realistic for tomorrow.
		sales := math.Min(inv.ShelfQty(), fc.MeanDemand)
		if sales > 0 {
			if err := inv.Withdraw(domain.LocationShelf, sales); err != nil {
				return nil, err
			}
		}
		result.TotalSalesQty += sales

		// 7. Emit the day and advance.
		result.Days = append(result.Days, domain.PlanDay{
			StoreID:             snapshot.StoreID,
			SKUID:               snapshot.SKUID,
			DayOffset:           t,
			RecommendedShelfQty: decision.RecommendedShelfQty,
			RefillQty:           decision.RefillQty,
			OrderQty:            decision.OrderQty,
			OverstockRisk:       decision.OverstockRisk,
			Markdown:            markdown,
			ProjectedWasteQty:   waste,
			ProjectedLossAmount: projectedLoss,
			ExpectedSalesQty:    sales,
			EndShelfQty:         inv.ShelfQty(),
			EndBackroomQty:      inv.BackroomQty(),
		})
	}

	result.FinalShelf = inv.ShelfQty()
	result.FinalBackroom = inv.BackroomQty()
	result.FinalInTransit = inv.InTransitTotal()

	return result, nil
}
