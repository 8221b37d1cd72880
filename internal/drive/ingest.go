package drive

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenishment-go/internal/domain"
	"github.com/andresuchdata/replenishment-go/internal/repository"
)

// IngestService pulls forecast CSVs out of Drive and loads them into the
// forecasts table. One file is one transactional upsert: a malformed row
// fails the whole file rather than leaving a partial horizon behind.
type IngestService struct {
	driveService *Service
	forecasts    repository.ForecastRepository
}

func NewIngestService(driveService *Service, forecasts repository.ForecastRepository) *IngestService {
	return &IngestService{
		driveService: driveService,
		forecasts:    forecasts,
	}
}

// IngestFile streams one Drive CSV into the forecasts table.
func (s *IngestService) IngestFile(ctx context.Context, fileID string) error {
	pr, pw := io.Pipe()
	go func() {
		err := s.driveService.DownloadFile(fileID, pw)
		pw.CloseWithError(err)
	}()

	rows, err := parseForecastCSV(pr)
	if err != nil {
		return fmt.Errorf("failed to parse forecast file %s: %w", fileID, err)
	}

	if err := s.forecasts.UpsertForecasts(ctx, rows); err != nil {
		return fmt.Errorf("failed to store forecast rows: %w", err)
	}

	log.Info().Str("file_id", fileID).Int("rows", len(rows)).Msg("Forecast file ingested")
	return nil
}

// IngestLocalCSV loads an already-downloaded forecast CSV, used by the
// folder watcher after XLSX conversion.
func (s *IngestService) IngestLocalCSV(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open forecast csv: %w", err)
	}
	defer f.Close()

	rows, err := parseForecastCSV(f)
	if err != nil {
		return fmt.Errorf("failed to parse forecast csv %s: %w", path, err)
	}

	if err := s.forecasts.UpsertForecasts(ctx, rows); err != nil {
		return fmt.Errorf("failed to store forecast rows: %w", err)
	}

	log.Info().Str("path", path).Int("rows", len(rows)).Msg("Forecast csv ingested")
	return nil
}

var forecastRequiredCols = []string{"store_id", "sku_id", "day_offset", "mean_demand"}

// parseForecastCSV reads forecast rows from r. Required columns are
// store_id, sku_id, day_offset and mean_demand; std_demand and the
// exogenous factor columns are optional and default to zero values the
// adapter knows how to fill in.
func parseForecastCSV(r io.Reader) ([]domain.ForecastRecord, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range forecastRequiredCols {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	var rows []domain.ForecastRecord
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		line++

		row, err := parseForecastRow(record, colMap)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseForecastRow(record []string, colMap map[string]int) (domain.ForecastRecord, error) {
	getValue := func(col string) string {
		if idx, ok := colMap[col]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	storeID, err := strconv.ParseInt(getValue("store_id"), 10, 64)
	if err != nil {
		return domain.ForecastRecord{}, fmt.Errorf("bad store_id: %w", err)
	}

	skuID := getValue("sku_id")
	if skuID == "" {
		return domain.ForecastRecord{}, fmt.Errorf("empty sku_id")
	}

	dayOffset, err := strconv.Atoi(getValue("day_offset"))
	if err != nil {
		return domain.ForecastRecord{}, fmt.Errorf("bad day_offset: %w", err)
	}

	meanDemand, err := strconv.ParseFloat(getValue("mean_demand"), 64)
	if err != nil {
		return domain.ForecastRecord{}, fmt.Errorf("bad mean_demand: %w", err)
	}

	getFloat := func(col string) float64 {
		val := getValue(col)
		if val == "" {
			return 0
		}
		f, _ := strconv.ParseFloat(val, 64)
		return f
	}
	getInt := func(col string) int {
		val := getValue(col)
		if val == "" {
			return 0
		}
		f, _ := strconv.ParseFloat(val, 64)
		return int(f)
	}
	getBool := func(col string) bool {
		val := strings.ToLower(getValue(col))
		return val == "1" || val == "true"
	}

	return domain.ForecastRecord{
		StoreID:               storeID,
		SKUID:                 skuID,
		DayOffset:             dayOffset,
		MeanDemand:            meanDemand,
		StdDemand:             getFloat("std_demand"),
		Weekday:               getInt("weekday"),
		IsWeekend:             getBool("is_weekend"),
		IsHoliday:             getBool("is_holiday"),
		WeatherBucket:         getValue("weather_bucket"),
		SeasonalityMultiplier: getFloat("seasonality_multiplier"),
	}, nil
}
