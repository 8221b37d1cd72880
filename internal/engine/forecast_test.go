package engine

import (
	"errors"
	"testing"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

func TestAdaptForecast_Normalization(t *testing.T) {
	rows := []domain.ForecastRecord{
		{DayOffset: 0, MeanDemand: 10, StdDemand: 2, Weekday: 5, IsWeekend: true, WeatherBucket: "rain", SeasonalityMultiplier: 1.2},
		{DayOffset: 1, MeanDemand: 8}, // no std, no seasonality
	}

	series, err := AdaptForecast(1, "SKU-1", rows)
	if err != nil {
		t.Fatalf("AdaptForecast failed: %v", err)
	}

	p0, err := series.Point(0)
	if err != nil {
		t.Fatalf("Point(0) failed: %v", err)
	}
	if p0.MeanDemand != 10 || p0.StdDemand != 2 {
		t.Errorf("point 0 = %+v, want mean 10 std 2", p0)
	}
	if !p0.Factors.IsWeekend || p0.Factors.WeatherBucket != "rain" {
		t.Errorf("factors not carried through: %+v", p0.Factors)
	}

	p1, err := series.Point(1)
	if err != nil {
		t.Fatalf("Point(1) failed: %v", err)
	}
	// Missing uncertainty falls back to 30 percent of the mean.
	if !almostEqual(p1.StdDemand, 2.4) {
		t.Errorf("fallback std = %v, want 2.4", p1.StdDemand)
	}
	if !almostEqual(p1.Factors.SeasonalityMultiplier, 1.0) {
		t.Errorf("default seasonality = %v, want 1.0", p1.Factors.SeasonalityMultiplier)
	}

	if series.Horizon() != 2 {
		t.Errorf("Horizon = %d, want 2", series.Horizon())
	}
}

func TestAdaptForecast_MissingDayIsError(t *testing.T) {
	series, err := AdaptForecast(7, "SKU-9", []domain.ForecastRecord{
		{DayOffset: 0, MeanDemand: 5, StdDemand: 1},
	})
	if err != nil {
		t.Fatalf("AdaptForecast failed: %v", err)
	}

	_, err = series.Point(3)
	var unavailable *domain.ForecastUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ForecastUnavailableError, got %v", err)
	}
	if unavailable.StoreID != 7 || unavailable.SKUID != "SKU-9" || unavailable.DayOffset != 3 {
		t.Errorf("error context = %+v", unavailable)
	}
}

func TestAdaptForecast_RejectsInvalidRows(t *testing.T) {
	cases := []domain.ForecastRecord{
		{DayOffset: -1, MeanDemand: 5},
		{DayOffset: 0, MeanDemand: -5},
		{DayOffset: 0, MeanDemand: 5, StdDemand: -1},
	}
	for i, row := range cases {
		_, err := AdaptForecast(1, "SKU-1", []domain.ForecastRecord{row})
		var invalid *domain.InvalidParameterError
		if !errors.As(err, &invalid) {
			t.Errorf("case %d: expected InvalidParameterError, got %v", i, err)
		}
	}
}
