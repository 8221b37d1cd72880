package engine

import (
	"math"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

// ShelfState is the inventory view the replenishment policy evaluates
// against for one day. The caller derives it from the batch inventory
// after aging and arrivals have been applied.
type ShelfState struct {
	ShelfQty       float64
	BackroomQty    float64
	ArrivalsBefore float64 // confirmed deliveries landing before the target day
	InTransitQty   float64 // all outstanding in-transit quantity
	ExpiringQty    float64 // on-hand units that will expire before they can sell
	EarliestExpiry int     // smallest remaining shelf life across batches
	HasBatches     bool
}

// Decision is the replenishment policy output for one (store, SKU, day).
type Decision struct {
	RecommendedShelfQty float64
	RefillQty           float64
	Transferable        float64
	Shortfall           float64
	OrderQty            float64
	OverstockRisk       bool
}

// ValidatePolicyParameters fails fast on malformed parameters. Called at
// construction time so policy evaluation itself stays pure arithmetic.
func ValidatePolicyParameters(p domain.PolicyParameters) error {
	if p.TargetCoverageDays <= 0 {
		return &domain.InvalidParameterError{Field: "target_coverage_days", Reason: "must be positive"}
	}
	if p.ServiceLevelZ < 0 {
		return &domain.InvalidParameterError{Field: "service_level_z", Reason: "must be non-negative"}
	}
	if p.CasePackSize <= 0 {
		return &domain.InvalidParameterError{Field: "case_pack_size", Reason: "must be positive"}
	}
	if p.MinOrderQty < 0 {
		return &domain.InvalidParameterError{Field: "min_order_qty", Reason: "must be non-negative"}
	}
	if p.MaxOrderQty < 0 {
		return &domain.InvalidParameterError{Field: "max_order_qty", Reason: "must be non-negative"}
	}
	if p.TransitDays < 0 {
		return &domain.InvalidParameterError{Field: "transit_days", Reason: "must be non-negative"}
	}
	if p.ShelfLifeDays <= 0 {
		return &domain.InvalidParameterError{Field: "shelf_life_days", Reason: "must be positive"}
	}
	if p.CostPerUnit < 0 {
		return &domain.InvalidParameterError{Field: "cost_per_unit", Reason: "must be non-negative"}
	}
	if p.CurrentPrice < 0 {
		return &domain.InvalidParameterError{Field: "current_price", Reason: "must be non-negative"}
	}
	for i, tier := range p.MarkdownTiers {
		if tier.DaysUntilExpiry < 0 {
			return &domain.InvalidParameterError{Field: "markdown_tiers.days_until_expiry", Reason: "must be non-negative"}
		}
		if tier.DiscountPercent < 0 || tier.DiscountPercent > 100 {
			return &domain.InvalidParameterError{Field: "markdown_tiers.discount_percent", Reason: "must be within 0-100"}
		}
		if tier.ExpectedSellthrough < 0 || tier.ExpectedSellthrough > 1 {
			return &domain.InvalidParameterError{Field: "markdown_tiers.expected_sellthrough", Reason: "must be within 0-1"}
		}
		if i > 0 && p.MarkdownTiers[i].DaysUntilExpiry <= p.MarkdownTiers[i-1].DaysUntilExpiry {
			return &domain.InvalidParameterError{Field: "markdown_tiers", Reason: "thresholds must be strictly ascending"}
		}
	}
	return nil
}

// EvaluateReplenishment computes the order-up-to decision for one day.
// State-free: the same inputs always give the same decision.
//
// The target shelf level covers mean demand over the coverage window plus
// safety stock sized by z times the demand deviation over the window.
// Refill comes from the backroom first; only the unmet shortfall becomes a
// purchase order, rounded up to the case pack and floored at the minimum
// order quantity. Units expiring before they can sell are netted out of
// the usable position when the order is sized.
func EvaluateReplenishment(p domain.PolicyParameters, fc domain.ForecastPoint, state ShelfState) (Decision, error) {
	if state.ShelfQty < 0 || state.BackroomQty < 0 || state.ArrivalsBefore < 0 || state.InTransitQty < 0 || state.ExpiringQty < 0 {
		return Decision{}, &domain.InvalidParameterError{Field: "shelf_state", Reason: "quantities must be non-negative"}
	}
	if fc.MeanDemand < 0 || fc.StdDemand < 0 {
		return Decision{}, &domain.InvalidParameterError{Field: "forecast", Reason: "demand must be non-negative"}
	}

	coverage := float64(p.TargetCoverageDays)
	sigma := fc.StdDemand * math.Sqrt(coverage)

	var d Decision
	d.RecommendedShelfQty = fc.MeanDemand*coverage + p.ServiceLevelZ*sigma
	d.RefillQty = math.Max(0, d.RecommendedShelfQty-state.ShelfQty)

	availableBackroom := state.BackroomQty + state.ArrivalsBefore
	d.Transferable = math.Min(d.RefillQty, availableBackroom)
	d.Shortfall = d.RefillQty - d.Transferable

	// Units that will expire before they can sell do not count toward
	// coverage. The order has to replace them even when physical stock
	// fills the shelf today.
	usable := state.ShelfQty + availableBackroom - state.ExpiringQty
	if usable < 0 {
		usable = 0
	}
	orderNeed := math.Max(d.Shortfall, d.RecommendedShelfQty-usable)

	// No order on a zero need: strictly greater than, not >=.
	if orderNeed > 0 {
		d.OrderQty = roundUpToCasePack(orderNeed, p.CasePackSize)
		if d.OrderQty > 0 && d.OrderQty < p.MinOrderQty {
			d.OrderQty = p.MinOrderQty
		}
	}

	if p.MaxOrderQty > 0 && d.OrderQty > p.MaxOrderQty {
		d.OrderQty = p.MaxOrderQty
	}

	// Anti-overstock clamp: total incoming must stay sellable before the
	// earliest batch's expiry plus the coverage window, otherwise the order
	// is guaranteed future waste. Expiring units are already excluded from
	// the usable position so a replacement order is not clamped away by the
	// doomed stock it replaces.
	if d.OrderQty > 0 && state.HasBatches {
		sellableWindow := float64(state.EarliestExpiry + p.TargetCoverageDays)
		if sellableWindow < 0 {
			sellableWindow = 0
		}
		sellableCeiling := fc.MeanDemand * sellableWindow
		maxNewOrder := math.Max(0, sellableCeiling-usable-state.InTransitQty)
		if d.OrderQty > maxNewOrder {
			d.OrderQty = maxNewOrder
			d.OverstockRisk = true
		}
	}

	return d, nil
}

// roundUpToCasePack rounds qty up to the next case pack multiple.
func roundUpToCasePack(qty, casePack float64) float64 {
	if qty <= 0 {
		return 0
	}
	if casePack <= 1 {
		return qty
	}
	return math.Ceil(qty/casePack) * casePack
}
