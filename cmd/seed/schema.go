package main

import (
	"fmt"
	"log"

	"github.com/urfave/cli/v2"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS inventory_batches (
		id BIGSERIAL PRIMARY KEY,
		store_id BIGINT NOT NULL,
		sku_id TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		days_until_expiry INTEGER NOT NULL,
		location TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_batches_unit
		ON inventory_batches (store_id, sku_id)`,

	`CREATE TABLE IF NOT EXISTS in_transit_orders (
		id BIGSERIAL PRIMARY KEY,
		store_id BIGINT NOT NULL,
		sku_id TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		arrival_day_offset INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_in_transit_orders_unit
		ON in_transit_orders (store_id, sku_id)`,

	`CREATE TABLE IF NOT EXISTS forecasts (
		store_id BIGINT NOT NULL,
		sku_id TEXT NOT NULL,
		day_offset INTEGER NOT NULL,
		mean_demand DOUBLE PRECISION NOT NULL,
		std_demand DOUBLE PRECISION NOT NULL DEFAULT 0,
		weekday INTEGER NOT NULL DEFAULT 0,
		is_weekend BOOLEAN NOT NULL DEFAULT FALSE,
		is_holiday BOOLEAN NOT NULL DEFAULT FALSE,
		weather_bucket TEXT NOT NULL DEFAULT '',
		seasonality_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (store_id, sku_id, day_offset)
	)`,

	`CREATE TABLE IF NOT EXISTS policy_parameters (
		sku_id TEXT PRIMARY KEY,
		category TEXT NOT NULL DEFAULT '',
		target_coverage_days INTEGER NOT NULL,
		service_level_z DOUBLE PRECISION NOT NULL,
		case_pack_size DOUBLE PRECISION NOT NULL,
		min_order_qty DOUBLE PRECISION NOT NULL,
		max_order_qty DOUBLE PRECISION NOT NULL,
		transit_days INTEGER NOT NULL,
		shelf_life_days INTEGER NOT NULL,
		min_markdown_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_elasticity DOUBLE PRECISION NOT NULL DEFAULT 0,
		cost_per_unit DOUBLE PRECISION NOT NULL DEFAULT 0,
		current_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS markdown_tiers (
		sku_id TEXT NOT NULL,
		days_until_expiry INTEGER NOT NULL,
		discount_percent DOUBLE PRECISION NOT NULL,
		expected_sellthrough DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (sku_id, days_until_expiry)
	)`,

	`CREATE TABLE IF NOT EXISTS plan_days (
		store_id BIGINT NOT NULL,
		sku_id TEXT NOT NULL,
		day_offset INTEGER NOT NULL,
		recommended_shelf_qty DOUBLE PRECISION NOT NULL,
		refill_qty DOUBLE PRECISION NOT NULL,
		order_qty DOUBLE PRECISION NOT NULL,
		overstock_risk BOOLEAN NOT NULL DEFAULT FALSE,
		markdown_action JSONB,
		projected_waste_qty DOUBLE PRECISION NOT NULL,
		projected_loss_amount DOUBLE PRECISION NOT NULL,
		expected_sales_qty DOUBLE PRECISION NOT NULL,
		end_shelf_qty DOUBLE PRECISION NOT NULL,
		end_backroom_qty DOUBLE PRECISION NOT NULL,
		run_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (store_id, sku_id, day_offset)
	)`,
}

func runInitDB(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Println("Creating schema...")
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(c.Context, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	log.Println("Schema ready")
	return nil
}
