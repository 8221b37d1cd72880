package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenishment-go/internal/config"
)

// csvRows opens a CSV file and returns the header column index map plus a
// function that yields one record at a time.
func csvRows(path string) (map[string]int, func() ([]string, error), func(), error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	return colMap, reader.Read, func() { file.Close() }, nil
}

func fieldValue(record []string, colMap map[string]int, col string) string {
	if idx, ok := colMap[col]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func mustFloat(record []string, colMap map[string]int, col string) (float64, error) {
	val := fieldValue(record, colMap, col)
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s value %q: %w", col, val, err)
	}
	return f, nil
}

func mustInt(record []string, colMap map[string]int, col string) (int, error) {
	val := fieldValue(record, colMap, col)
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("bad %s value %q: %w", col, val, err)
	}
	return n, nil
}

func floatOrDefault(record []string, colMap map[string]int, col string, def float64) float64 {
	val := fieldValue(record, colMap, col)
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}

func boolField(record []string, colMap map[string]int, col string) bool {
	val := strings.ToLower(fieldValue(record, colMap, col))
	return val == "1" || val == "true"
}

func loadCSV(ctx context.Context, db *sql.DB, path, label string,
	insert func(ctx context.Context, tx *sql.Tx, record []string, colMap map[string]int) error) error {

	colMap, next, closeFile, err := csvRows(path)
	if err != nil {
		return err
	}
	defer closeFile()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	count := 0
	for {
		record, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		if err := insert(ctx, tx, record, colMap); err != nil {
			return fmt.Errorf("row %d: %w", count+2, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.Printf("Loaded %d %s rows from %s", count, label, path)
	return nil
}

func runSeedSnapshots(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	engineCfg := config.Load().Engine

	err = loadCSV(c.Context, db, c.String("file"), "inventory batch",
		func(ctx context.Context, tx *sql.Tx, record []string, colMap map[string]int) error {
			storeID, err := mustInt(record, colMap, "store_id")
			if err != nil {
				return err
			}
			qty, err := mustFloat(record, colMap, "quantity")
			if err != nil {
				return err
			}

			// Rows without an explicit expiry fall back to the category
			// shelf-life table.
			var days int
			if fieldValue(record, colMap, "days_until_expiry") == "" {
				days = engineCfg.ShelfLifeFor(fieldValue(record, colMap, "category"))
			} else {
				days, err = mustInt(record, colMap, "days_until_expiry")
				if err != nil {
					return err
				}
			}
			location := fieldValue(record, colMap, "location")
			if location == "" {
				location = "shelf"
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO inventory_batches (store_id, sku_id, quantity, days_until_expiry, location)
				VALUES ($1, $2, $3, $4, $5)
			`, storeID, fieldValue(record, colMap, "sku_id"), qty, days, location)
			return err
		})
	if err != nil {
		return err
	}

	transitFile := c.String("in-transit-file")
	if transitFile == "" {
		return nil
	}

	return loadCSV(c.Context, db, transitFile, "in-transit order",
		func(ctx context.Context, tx *sql.Tx, record []string, colMap map[string]int) error {
			storeID, err := mustInt(record, colMap, "store_id")
			if err != nil {
				return err
			}
			qty, err := mustFloat(record, colMap, "quantity")
			if err != nil {
				return err
			}
			arrival, err := mustInt(record, colMap, "arrival_day_offset")
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO in_transit_orders (store_id, sku_id, quantity, arrival_day_offset)
				VALUES ($1, $2, $3, $4)
			`, storeID, fieldValue(record, colMap, "sku_id"), qty, arrival)
			return err
		})
}

func runSeedForecasts(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return loadCSV(c.Context, db, c.String("file"), "forecast",
		func(ctx context.Context, tx *sql.Tx, record []string, colMap map[string]int) error {
			storeID, err := mustInt(record, colMap, "store_id")
			if err != nil {
				return err
			}
			dayOffset, err := mustInt(record, colMap, "day_offset")
			if err != nil {
				return err
			}
			mean, err := mustFloat(record, colMap, "mean_demand")
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO forecasts (
					store_id, sku_id, day_offset, mean_demand, std_demand,
					weekday, is_weekend, is_holiday, weather_bucket, seasonality_multiplier
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
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
			`,
				storeID, fieldValue(record, colMap, "sku_id"), dayOffset, mean,
				floatOrDefault(record, colMap, "std_demand", 0),
				int(floatOrDefault(record, colMap, "weekday", 0)),
				boolField(record, colMap, "is_weekend"),
				boolField(record, colMap, "is_holiday"),
				fieldValue(record, colMap, "weather_bucket"),
				floatOrDefault(record, colMap, "seasonality_multiplier", 1.0),
			)
			return err
		})
}

func runSeedParams(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	err = loadCSV(c.Context, db, c.String("file"), "policy parameter",
		func(ctx context.Context, tx *sql.Tx, record []string, colMap map[string]int) error {
			coverage, err := mustInt(record, colMap, "target_coverage_days")
			if err != nil {
				return err
			}
			shelfLife, err := mustInt(record, colMap, "shelf_life_days")
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO policy_parameters (
					sku_id, category, target_coverage_days, service_level_z,
					case_pack_size, min_order_qty, max_order_qty, transit_days,
					shelf_life_days, min_markdown_qty, price_elasticity,
					cost_per_unit, current_price
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				ON CONFLICT (sku_id)
				DO UPDATE SET
					category = EXCLUDED.category,
					target_coverage_days = EXCLUDED.target_coverage_days,
					service_level_z = EXCLUDED.service_level_z,
					case_pack_size = EXCLUDED.case_pack_size,
					min_order_qty = EXCLUDED.min_order_qty,
					max_order_qty = EXCLUDED.max_order_qty,
					transit_days = EXCLUDED.transit_days,
					shelf_life_days = EXCLUDED.shelf_life_days,
					min_markdown_qty = EXCLUDED.min_markdown_qty,
					price_elasticity = EXCLUDED.price_elasticity,
					cost_per_unit = EXCLUDED.cost_per_unit,
					current_price = EXCLUDED.current_price,
					updated_at = NOW()
			`,
				fieldValue(record, colMap, "sku_id"),
				fieldValue(record, colMap, "category"),
				coverage,
				floatOrDefault(record, colMap, "service_level_z", 1.65),
				floatOrDefault(record, colMap, "case_pack_size", 1),
				floatOrDefault(record, colMap, "min_order_qty", 1),
				floatOrDefault(record, colMap, "max_order_qty", 1000),
				int(floatOrDefault(record, colMap, "transit_days", 1)),
				shelfLife,
				floatOrDefault(record, colMap, "min_markdown_qty", 0),
				floatOrDefault(record, colMap, "price_elasticity", 0),
				floatOrDefault(record, colMap, "cost_per_unit", 0),
				floatOrDefault(record, colMap, "current_price", 0),
			)
			return err
		})
	if err != nil {
		return err
	}

	tiersFile := c.String("tiers-file")
	if tiersFile == "" {
		return nil
	}

	return loadCSV(c.Context, db, tiersFile, "markdown tier",
		func(ctx context.Context, tx *sql.Tx, record []string, colMap map[string]int) error {
			days, err := mustInt(record, colMap, "days_until_expiry")
			if err != nil {
				return err
			}
			discount, err := mustFloat(record, colMap, "discount_percent")
			if err != nil {
				return err
			}
			sellthrough, err := mustFloat(record, colMap, "expected_sellthrough")
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO markdown_tiers (sku_id, days_until_expiry, discount_percent, expected_sellthrough)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (sku_id, days_until_expiry)
				DO UPDATE SET
					discount_percent = EXCLUDED.discount_percent,
					expected_sellthrough = EXCLUDED.expected_sellthrough
			`, fieldValue(record, colMap, "sku_id"), days, discount, sellthrough)
			return err
		})
}
