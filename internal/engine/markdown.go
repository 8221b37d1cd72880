package engine

import (
	"math"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

// lossEpsilon bounds the loss comparison: projections equal within this
// margin prefer the lower discount to minimize margin erosion.
const lossEpsilon = 1e-9

// EvaluateMarkdown decides a discount action for the near-expiry stock of
// one (store, SKU) on one day. The action is nil when no batch qualifies
// or when discounting projects a larger loss than doing nothing; the
// second return is the projected loss for the qualifying stock under the
// chosen course, zero when nothing qualifies.
//
// Batches already past expiry are waste, not a pricing decision; the
// inventory's aging sweep accounts for them before this runs.
func EvaluateMarkdown(p domain.PolicyParameters, batches []domain.Batch, meanDemand float64) (*domain.MarkdownAction, float64) {
	if len(p.MarkdownTiers) == 0 || p.CurrentPrice <= 0 {
		return nil, 0
	}

	maxThreshold := p.MarkdownTiers[len(p.MarkdownTiers)-1].DaysUntilExpiry

	qualifying := 0.0
	minDays := math.MaxInt32
	for _, b := range batches {
		if b.DaysUntilExpiry < 0 || b.DaysUntilExpiry > maxThreshold || b.Quantity <= 0 {
			continue
		}
		qualifying += b.Quantity
		if b.DaysUntilExpiry < minDays {
			minDays = b.DaysUntilExpiry
		}
	}
	if qualifying <= 0 {
		return nil, 0
	}

	// Write-off of the full quantity, assuming zero sell-through once
	// expired. This is the loss projection whenever no action is taken.
	lossIfNoAction := qualifying * p.CostPerUnit

	// Too little stock to be worth repricing.
	if p.MinMarkdownQty > 0 && qualifying < p.MinMarkdownQty {
		return nil, lossIfNoAction
	}

	tier, ok := tierFor(p.MarkdownTiers, minDays)
	if !ok {
		return nil, lossIfNoAction
	}

	discount := tier.DiscountPercent / 100.0
	discountedPrice := p.CurrentPrice * (1 - discount)

	// Never price below cost without flagging it: clamp the discount to
	// breakeven and mark the action as at-cost.
	atCost := false
	if discountedPrice < p.CostPerUnit {
		discount = math.Max(0, (p.CurrentPrice-p.CostPerUnit)/p.CurrentPrice)
		discountedPrice = p.CurrentPrice * (1 - discount)
		atCost = true
	}

	sellthrough := tier.ExpectedSellthrough

	// Partial clearance at the discounted price with the remainder still
	// wasted, compared against the full write-off.
	lossFromDiscount := qualifying*(p.CurrentPrice-discountedPrice)*sellthrough +
		qualifying*(1-sellthrough)*p.CostPerUnit

	if lossFromDiscount >= lossIfNoAction-lossEpsilon {
		return nil, lossIfNoAction
	}

	return &domain.MarkdownAction{
		DiscountPercent:     discount * 100,
		AtCostPrice:         atCost,
		DiscountedPrice:     discountedPrice,
		AffectedQty:         qualifying,
		ExpectedSellthrough: sellthrough,
		ExpectedDemand:      estimateDemandUplift(meanDemand, discount*100, p.PriceElasticity),
		ProjectedLoss:       lossFromDiscount,
		LossIfNoAction:      lossIfNoAction,
	}, lossFromDiscount
}

// tierFor picks the most restrictive tier whose threshold still covers the
// given remaining shelf life. Tiers are validated strictly ascending.
func tierFor(tiers []domain.MarkdownTier, daysUntilExpiry int) (domain.MarkdownTier, bool) {
	for _, tier := range tiers {
		if daysUntilExpiry <= tier.DaysUntilExpiry {
			return tier, true
		}
	}
	return domain.MarkdownTier{}, false
}

// estimateDemandUplift applies a constant price elasticity to the base
// demand for the given discount. Elasticity is configuration, not
// something estimated online.
func estimateDemandUplift(baseDemand, discountPercent, elasticity float64) float64 {
	if discountPercent == 0 {
		return baseDemand
	}
	priceChange := -discountPercent / 100.0
	demandChange := elasticity * priceChange
	return math.Max(0, baseDemand*(1+demandChange))
}
