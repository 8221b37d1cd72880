package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) *forecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) GetForecast(ctx context.Context, storeID int64, skuID string, horizonDays int) ([]domain.ForecastRecord, error) {
	query := `
		SELECT store_id, sku_id, day_offset, mean_demand, std_demand,
		       weekday, is_weekend, is_holiday, weather_bucket,
		       seasonality_multiplier, created_at
		FROM forecasts
		WHERE store_id = $1 AND sku_id = $2 AND day_offset < $3
		ORDER BY day_offset ASC
	`
	var rows []domain.ForecastRecord
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, storeID, skuID, horizonDays); err != nil {
		return nil, fmt.Errorf("failed to get forecast: %w", err)
	}
	return rows, nil
}

func (r *forecastRepository) UpsertForecasts(ctx context.Context, rows []domain.ForecastRecord) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO forecasts (
				store_id, sku_id, day_offset, mean_demand, std_demand,
				weekday, is_weekend, is_holiday, weather_bucket,
				seasonality_multiplier, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			ON CONFLICT (store_id, sku_id, day_offset)
			DO UPDATE SET
				mean_demand = EXCLUDED.mean_demand,
				std_demand = EXCLUDED.std_demand,
				weekday = EXCLUDED.weekday,
				is_weekend = EXCLUDED.is_weekend,
				is_holiday = EXCLUDED.is_holiday,
				weather_bucket = EXCLUDED.weather_bucket,
				seasonality_multiplier = EXCLUDED.seasonality_multiplier,
				created_at = NOW()
		`
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare forecast upsert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.StoreID, row.SKUID, row.DayOffset, row.MeanDemand, row.StdDemand,
				row.Weekday, row.IsWeekend, row.IsHoliday, row.WeatherBucket,
				row.SeasonalityMultiplier,
			); err != nil {
				return fmt.Errorf("failed to upsert forecast row: %w", err)
			}
		}
		return nil
	})
}
