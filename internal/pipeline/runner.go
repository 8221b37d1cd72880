package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenishment-go/internal/engine"
)

// Runner executes a batch of planning units over a bounded worker pool.
// Each unit gets its own simulator run; one unit failing does not stop
// the others.
type Runner struct {
	config Config
}

func NewRunner(config Config) (*Runner, error) {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if _, err := engine.NewSimulator(config.HorizonDays); err != nil {
		return nil, err
	}
	return &Runner{config: config}, nil
}

// Run processes all units and returns one result per unit, in input
// order regardless of which worker finished first. Context cancellation
// stops dispatching new units; units already in flight run to completion.
func (r *Runner) Run(ctx context.Context, units []Unit) ([]UnitResult, RunSummary, error) {
	summary := RunSummary{
		TotalUnits: len(units),
		StartedAt:  time.Now(),
	}

	log.Info().
		Int("units", len(units)).
		Int("workers", r.config.WorkerCount).
		Int("horizon_days", r.config.HorizonDays).
		Msg("Starting plan batch run")

	type indexedUnit struct {
		idx  int
		unit Unit
	}

	results := make([]UnitResult, len(units))
	jobChan := make(chan indexedUnit)
	var wg sync.WaitGroup

	for i := 0; i < r.config.WorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				results[job.idx] = r.runUnit(job.unit)
				if results[job.idx].Status == UnitFailed {
					log.Warn().
						Int("worker", workerID).
						Int64("store_id", job.unit.StoreID).
						Str("sku_id", job.unit.SKUID).
						Err(results[job.idx].Err).
						Msg("Unit plan failed")
				}
			}
		}(i)
	}

	var dispatchErr error
	dispatched := 0
dispatch:
	for i, unit := range units {
		select {
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		case jobChan <- indexedUnit{idx: i, unit: unit}:
			dispatched++
		}
	}
	close(jobChan)
	wg.Wait()

	// Units never dispatched because of cancellation still get a result.
	for i := dispatched; i < len(units); i++ {
		results[i] = UnitResult{
			StoreID: units[i].StoreID,
			SKUID:   units[i].SKUID,
			Status:  UnitFailed,
			Err:     dispatchErr,
		}
	}

	for _, res := range results {
		switch res.Status {
		case UnitCompleted:
			summary.Completed++
		case UnitFailed:
			summary.Failed++
		}
	}
	summary.CompletedAt = time.Now()

	log.Info().
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.CompletedAt.Sub(summary.StartedAt)).
		Msg("Plan batch run finished")

	return results, summary, dispatchErr
}

func (r *Runner) runUnit(unit Unit) UnitResult {
	start := time.Now()
	res := UnitResult{
		StoreID: unit.StoreID,
		SKUID:   unit.SKUID,
	}

	sim, err := engine.NewSimulator(r.config.HorizonDays)
	if err != nil {
		res.Status = UnitFailed
		res.Err = err
	} else if out, err := sim.Run(unit.Params, unit.Snapshot, unit.Forecast); err != nil {
		res.Status = UnitFailed
		res.Err = err
	} else {
		res.Status = UnitCompleted
		res.Result = out
	}

	res.Elapsed = time.Since(start)
	res.FinishedAt = time.Now()
	return res
}
