package domain

import "time"

// Location identifies where a batch physically sits inside a store.
type Location string

const (
	LocationShelf    Location = "shelf"
	LocationBackroom Location = "backroom"
)

// Batch is a single expiry-dated lot of stock owned by one (store, SKU)
// inventory. Quantities are real numbers since weight-based products can
// carry fractional units.
type Batch struct {
	Quantity        float64  `json:"quantity" db:"quantity"`
	DaysUntilExpiry int      `json:"days_until_expiry" db:"days_until_expiry"`
	Location        Location `json:"location" db:"location"`
}

// InTransitOrder is ordered but not yet arrived stock, expected on a
// specific simulation day offset.
type InTransitOrder struct {
	Quantity         float64 `json:"quantity" db:"quantity"`
	ArrivalDayOffset int     `json:"arrival_day_offset" db:"arrival_day_offset"`
}

// InventorySnapshot is the engine's view of one (store, SKU) inventory at
// the start of a planning run.
type InventorySnapshot struct {
	StoreID   int64            `json:"store_id" db:"store_id"`
	SKUID     string           `json:"sku_id" db:"sku_id"`
	Batches   []Batch          `json:"batches"`
	InTransit []InTransitOrder `json:"in_transit"`
}

// ForecastFactors carries the exogenous signals the external forecast was
// built from. The engine treats them as opaque reporting context; the
// demand numbers already include their effect.
type ForecastFactors struct {
	Weekday               int     `json:"weekday" db:"weekday"`
	IsWeekend             bool    `json:"is_weekend" db:"is_weekend"`
	IsHoliday             bool    `json:"is_holiday" db:"is_holiday"`
	WeatherBucket         string  `json:"weather_bucket" db:"weather_bucket"`
	SeasonalityMultiplier float64 `json:"seasonality_multiplier" db:"seasonality_multiplier"`
}

// ForecastRecord is a raw row from the external forecast source, keyed by
// store, SKU and day offset.
type ForecastRecord struct {
	StoreID               int64     `json:"store_id" db:"store_id"`
	SKUID                 string    `json:"sku_id" db:"sku_id"`
	DayOffset             int       `json:"day_offset" db:"day_offset"`
	MeanDemand            float64   `json:"mean_demand" db:"mean_demand"`
	StdDemand             float64   `json:"std_demand" db:"std_demand"`
	Weekday               int       `json:"weekday" db:"weekday"`
	IsWeekend             bool      `json:"is_weekend" db:"is_weekend"`
	IsHoliday             bool      `json:"is_holiday" db:"is_holiday"`
	WeatherBucket         string    `json:"weather_bucket" db:"weather_bucket"`
	SeasonalityMultiplier float64   `json:"seasonality_multiplier" db:"seasonality_multiplier"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}

// ForecastPoint is the normalized per-day demand distribution consumed by
// the policy and simulator. Immutable once adapted.
type ForecastPoint struct {
	DayOffset  int             `json:"day_offset"`
	MeanDemand float64         `json:"mean_demand"`
	StdDemand  float64         `json:"std_demand"`
	Factors    ForecastFactors `json:"factors"`
}

// MarkdownTier maps a remaining shelf-life threshold to a configured
// discount and its expected clearance rate for the SKU's category.
type MarkdownTier struct {
	DaysUntilExpiry     int     `json:"days_until_expiry" db:"days_until_expiry"`
	DiscountPercent     float64 `json:"discount_percent" db:"discount_percent"`
	ExpectedSellthrough float64 `json:"expected_sellthrough" db:"expected_sellthrough"`
}

// PolicyParameters holds the per-SKU (or per-category) knobs for the
// replenishment and markdown policies.
type PolicyParameters struct {
	SKUID              string         `json:"sku_id" db:"sku_id"`
	Category           string         `json:"category" db:"category"`
	TargetCoverageDays int            `json:"target_coverage_days" db:"target_coverage_days"`
	ServiceLevelZ      float64        `json:"service_level_z" db:"service_level_z"`
	CasePackSize       float64        `json:"case_pack_size" db:"case_pack_size"`
	MinOrderQty        float64        `json:"min_order_qty" db:"min_order_qty"`
	MaxOrderQty        float64        `json:"max_order_qty" db:"max_order_qty"`
	TransitDays        int            `json:"transit_days" db:"transit_days"`
	ShelfLifeDays      int            `json:"shelf_life_days" db:"shelf_life_days"`
	MarkdownTiers      []MarkdownTier `json:"markdown_tiers"`
	MinMarkdownQty     float64        `json:"min_markdown_qty" db:"min_markdown_qty"`
	PriceElasticity    float64        `json:"price_elasticity" db:"price_elasticity"`
	CostPerUnit        float64        `json:"cost_per_unit" db:"cost_per_unit"`
	CurrentPrice       float64        `json:"current_price" db:"current_price"`
}

// MarkdownAction is a recommended discount for near-expiry stock on a
// given plan day.
type MarkdownAction struct {
	DiscountPercent     float64 `json:"discount_percent"`
	AtCostPrice         bool    `json:"at_cost_price"`
	DiscountedPrice     float64 `json:"discounted_price"`
	AffectedQty         float64 `json:"affected_qty"`
	ExpectedSellthrough float64 `json:"expected_sellthrough"`
	ExpectedDemand      float64 `json:"expected_demand"`
	ProjectedLoss       float64 `json:"projected_loss"`
	LossIfNoAction      float64 `json:"loss_if_no_action"`
}

// PlanDay is one day of the replenishment plan for a (store, SKU) unit.
// Plans are produced fresh by every simulator run and never mutated; a new
// run supersedes the previous plan entirely.
type PlanDay struct {
	StoreID             int64           `json:"store_id" db:"store_id"`
	SKUID               string          `json:"sku_id" db:"sku_id"`
	DayOffset           int             `json:"day_offset" db:"day_offset"`
	RecommendedShelfQty float64         `json:"recommended_shelf_qty" db:"recommended_shelf_qty"`
	RefillQty           float64         `json:"refill_qty" db:"refill_qty"`
	OrderQty            float64         `json:"order_qty" db:"order_qty"`
	OverstockRisk       bool            `json:"overstock_risk" db:"overstock_risk"`
	Markdown            *MarkdownAction `json:"markdown_action,omitempty"`
	ProjectedWasteQty   float64         `json:"projected_waste_qty" db:"projected_waste_qty"`
	ProjectedLossAmount float64         `json:"projected_loss_amount" db:"projected_loss_amount"`
	ExpectedSalesQty    float64         `json:"expected_sales_qty" db:"expected_sales_qty"`
	EndShelfQty         float64         `json:"end_shelf_qty" db:"end_shelf_qty"`
	EndBackroomQty      float64         `json:"end_backroom_qty" db:"end_backroom_qty"`
}

// ExpiryBuckets partitions on-hand quantity by remaining shelf life for
// reporting.
type ExpiryBuckets struct {
	Expired         float64 `json:"expired"`
	OneToThreeDays  float64 `json:"1_3_days"`
	FourToSevenDays float64 `json:"4_7_days"`
	EightPlusDays   float64 `json:"8_plus_days"`
}

// UnitKey identifies one independently plannable (store, SKU) unit.
type UnitKey struct {
	StoreID int64  `json:"store_id" db:"store_id"`
	SKUID   string `json:"sku_id" db:"sku_id"`
}

// PlanRunRequest selects the units a planning run should cover. Empty
// filters mean all known units.
type PlanRunRequest struct {
	StoreIDs []int64  `json:"store_ids"`
	SKUIDs   []string `json:"sku_ids"`
	Horizon  int      `json:"horizon_days"`
}
