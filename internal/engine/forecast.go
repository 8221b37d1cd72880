package engine

import (
	"github.com/andresuchdata/replenishment-go/internal/domain"
)

// stdDemandFallbackRatio estimates forecast uncertainty when the source
// omits it, matching the typical MAPE of the upstream model.
const stdDemandFallbackRatio = 0.30

// ForecastSeries is the adapted per-day demand distribution for one
// (store, SKU). Points are immutable after adaptation.
type ForecastSeries struct {
	storeID int64
	skuID   string
	points  map[int]domain.ForecastPoint
	horizon int
}

// AdaptForecast normalizes raw forecast rows into a ForecastSeries. Pure
// translation: no retries, no side effects, no modeling. Missing
// uncertainty falls back to a fixed fraction of the mean; a missing
// seasonality multiplier is treated as neutral.
func AdaptForecast(storeID int64, skuID string, rows []domain.ForecastRecord) (*ForecastSeries, error) {
	series := &ForecastSeries{
		storeID: storeID,
		skuID:   skuID,
		points:  make(map[int]domain.ForecastPoint, len(rows)),
	}

	for _, row := range rows {
		if row.DayOffset < 0 {
			return nil, &domain.InvalidParameterError{Field: "day_offset", Reason: "must be non-negative"}
		}
		if row.MeanDemand < 0 {
			return nil, &domain.InvalidParameterError{Field: "mean_demand", Reason: "must be non-negative"}
		}
		if row.StdDemand < 0 {
			return nil, &domain.InvalidParameterError{Field: "std_demand", Reason: "must be non-negative"}
		}

		std := row.StdDemand
		if std == 0 {
			std = row.MeanDemand * stdDemandFallbackRatio
		}

		seasonality := row.SeasonalityMultiplier
		if seasonality == 0 {
			seasonality = 1.0
		}

		series.points[row.DayOffset] = domain.ForecastPoint{
			DayOffset:  row.DayOffset,
			MeanDemand: row.MeanDemand,
			StdDemand:  std,
			Factors: domain.ForecastFactors{
				Weekday:               row.Weekday,
				IsWeekend:             row.IsWeekend,
				IsHoliday:             row.IsHoliday,
				WeatherBucket:         row.WeatherBucket,
				SeasonalityMultiplier: seasonality,
			},
		}

		if row.DayOffset+1 > series.horizon {
			series.horizon = row.DayOffset + 1
		}
	}

	return series, nil
}

// Point returns the forecast for the given day offset. A missing day is a
// ForecastUnavailableError, never a silent zero: substituting zero demand
// would systematically suppress ordering and cause stockouts.
func (s *ForecastSeries) Point(dayOffset int) (domain.ForecastPoint, error) {
	p, ok := s.points[dayOffset]
	if !ok {
		return domain.ForecastPoint{}, &domain.ForecastUnavailableError{
			StoreID:   s.storeID,
			SKUID:     s.skuID,
			DayOffset: dayOffset,
		}
	}
	return p, nil
}

// Horizon returns one past the highest adapted day offset.
func (s *ForecastSeries) Horizon() int { return s.horizon }
