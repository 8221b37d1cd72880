package pipeline

import (
	"time"

	"github.com/andresuchdata/replenishment-go/internal/domain"
	"github.com/andresuchdata/replenishment-go/internal/engine"
)

// Unit is one independent (store, SKU) planning problem. Units share no
// state, which is what makes the batch embarrassingly parallel.
type Unit struct {
	StoreID  int64
	SKUID    string
	Snapshot domain.InventorySnapshot
	Params   domain.PolicyParameters
	Forecast *engine.ForecastSeries
}

// UnitStatus reports how a single unit run ended.
type UnitStatus string

const (
	UnitCompleted UnitStatus = "completed"
	UnitFailed    UnitStatus = "failed"
)

// UnitResult pairs a unit with its simulation outcome. A failed unit
// carries Err and a nil Result; failures never abort sibling units.
type UnitResult struct {
	StoreID    int64
	SKUID      string
	Status     UnitStatus
	Result     *engine.SimulationResult
	Err        error
	Elapsed    time.Duration
	FinishedAt time.Time
}

// RunSummary aggregates a whole batch run.
type RunSummary struct {
	TotalUnits  int
	Completed   int
	Failed      int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Config holds runner settings.
type Config struct {
	HorizonDays int
	WorkerCount int
}

// DefaultConfig returns sensible runner defaults.
func DefaultConfig() Config {
	return Config{
		HorizonDays: 7,
		WorkerCount: 8,
	}
}
