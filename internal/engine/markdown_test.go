package engine

import (
	"testing"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

func TestEvaluateMarkdown_TierSelection(t *testing.T) {
	p := baseParams()
	batches := []domain.Batch{
		{Quantity: 10, DaysUntilExpiry: 2, Location: domain.LocationShelf},
		{Quantity: 15, DaysUntilExpiry: 6, Location: domain.LocationBackroom},
	}

	action, _ := EvaluateMarkdown(p, batches, 8)
	if action == nil {
		t.Fatal("expected a markdown action for the 2-day batch")
	}
	// The 2-day batch matches the 2-day/35% tier; the 6-day batch is
	// outside every tier and must not be counted.
	if !almostEqual(action.AffectedQty, 10) {
		t.Errorf("AffectedQty = %v, want 10", action.AffectedQty)
	}
	if !almostEqual(action.DiscountPercent, 35) {
		t.Errorf("DiscountPercent = %v, want 35", action.DiscountPercent)
	}
	if action.AtCostPrice {
		t.Error("discounted price 1.30 is above cost 1.20: at-cost must not be flagged")
	}
	if action.DiscountedPrice < p.CostPerUnit {
		t.Errorf("DiscountedPrice %v below cost %v without at-cost flag", action.DiscountedPrice, p.CostPerUnit)
	}
}

func TestEvaluateMarkdown_AtCostClamp(t *testing.T) {
	// 50% off 2.00 is 1.00, below cost 1.20. The recommendation clamps to
	// the breakeven discount and flags at-cost.
	p := baseParams()
	batches := []domain.Batch{
		{Quantity: 10, DaysUntilExpiry: 1, Location: domain.LocationShelf},
	}

	action, _ := EvaluateMarkdown(p, batches, 8)
	if action == nil {
		t.Fatal("expected a markdown action")
	}
	if !action.AtCostPrice {
		t.Error("expected at-cost flag when the tier discount prices below cost")
	}
	if !almostEqual(action.DiscountedPrice, p.CostPerUnit) {
		t.Errorf("DiscountedPrice = %v, want clamped to cost %v", action.DiscountedPrice, p.CostPerUnit)
	}
	wantDiscount := (p.CurrentPrice - p.CostPerUnit) / p.CurrentPrice * 100
	if !almostEqual(action.DiscountPercent, wantDiscount) {
		t.Errorf("DiscountPercent = %v, want %v", action.DiscountPercent, wantDiscount)
	}
}

func TestEvaluateMarkdown_NeverBelowCostWithoutFlag(t *testing.T) {
	p := baseParams()
	for days := 0; days <= 3; days++ {
		batches := []domain.Batch{{Quantity: 20, DaysUntilExpiry: days, Location: domain.LocationShelf}}
		action, _ := EvaluateMarkdown(p, batches, 10)
		if action == nil {
			continue
		}
		if !action.AtCostPrice && action.DiscountedPrice < p.CostPerUnit-qtyTolerance {
			t.Errorf("days=%d: price %v below cost %v without at-cost flag", days, action.DiscountedPrice, p.CostPerUnit)
		}
	}
}

func TestEvaluateMarkdown_LossComparison(t *testing.T) {
	p := baseParams()
	batches := []domain.Batch{
		{Quantity: 10, DaysUntilExpiry: 2, Location: domain.LocationShelf},
	}

	action, projected := EvaluateMarkdown(p, batches, 8)
	if action == nil {
		t.Fatal("expected a markdown action")
	}

	// loss_if_no_action = 10 * 1.20 = 12.
	if !almostEqual(action.LossIfNoAction, 12) {
		t.Errorf("LossIfNoAction = %v, want 12", action.LossIfNoAction)
	}
	// 35 percent tier, sell-through 0.7: 10*0.70*0.7 + 10*0.3*1.20 = 4.9 + 3.6.
	if !almostEqual(action.ProjectedLoss, 8.5) {
		t.Errorf("ProjectedLoss = %v, want 8.5", action.ProjectedLoss)
	}
	if action.ProjectedLoss >= action.LossIfNoAction {
		t.Error("emitted action must project a smaller loss than no action")
	}
	if !almostEqual(projected, action.ProjectedLoss) {
		t.Errorf("returned projection %v != action projection %v", projected, action.ProjectedLoss)
	}
}

func TestEvaluateMarkdown_PrefersNoActionWhenDiscountLoses(t *testing.T) {
	// Zero sell-through: discounting only deepens the loss, so the policy
	// recommends nothing but still projects the write-off.
	p := baseParams()
	for i := range p.MarkdownTiers {
		p.MarkdownTiers[i].ExpectedSellthrough = 0
	}
	batches := []domain.Batch{{Quantity: 10, DaysUntilExpiry: 2, Location: domain.LocationShelf}}

	action, projected := EvaluateMarkdown(p, batches, 8)
	if action != nil {
		t.Fatalf("expected no action with zero sell-through, got %+v", action)
	}
	if !almostEqual(projected, 12) {
		t.Errorf("projected loss = %v, want write-off 12", projected)
	}
}

func TestEvaluateMarkdown_ExpiredIsWasteNotMarkdown(t *testing.T) {
	p := baseParams()
	batches := []domain.Batch{
		{Quantity: 5, DaysUntilExpiry: -1, Location: domain.LocationShelf},
	}
	action, projected := EvaluateMarkdown(p, batches, 8)
	if action != nil {
		t.Fatalf("expired batch must not receive a markdown, got %+v", action)
	}
	if projected != 0 {
		t.Errorf("expired stock is waste accounting, not a markdown loss projection, got %v", projected)
	}
}

func TestEvaluateMarkdown_MinQuantityThreshold(t *testing.T) {
	p := baseParams()
	p.MinMarkdownQty = 5
	batches := []domain.Batch{{Quantity: 2, DaysUntilExpiry: 1, Location: domain.LocationShelf}}

	action, _ := EvaluateMarkdown(p, batches, 8)
	if action != nil {
		t.Fatalf("expected no markdown below the minimum quantity threshold, got %+v", action)
	}
}

func TestEstimateDemandUplift(t *testing.T) {
	// Elasticity -2 at 20 percent off: demand change = -2 * -0.2 = +40 percent.
	if got := estimateDemandUplift(10, 20, -2); !almostEqual(got, 14) {
		t.Errorf("uplift = %v, want 14", got)
	}
	if got := estimateDemandUplift(10, 0, -2); !almostEqual(got, 10) {
		t.Errorf("no discount uplift = %v, want 10", got)
	}
	// Never negative demand.
	if got := estimateDemandUplift(10, 80, 2); got < 0 {
		t.Errorf("uplift = %v, must be non-negative", got)
	}
}
