package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

type policyRepository struct {
	db *DB
}

func NewPolicyRepository(db *DB) *policyRepository {
	return &policyRepository{db: db}
}

// GetParameters returns the stored policy row for a SKU. found is false
// when the SKU has no row; the caller then applies configured defaults.
func (r *policyRepository) GetParameters(ctx context.Context, skuID string) (domain.PolicyParameters, bool, error) {
	var params domain.PolicyParameters

	query := `
		SELECT sku_id, category, target_coverage_days, service_level_z,
		       case_pack_size, min_order_qty, max_order_qty, transit_days,
		       shelf_life_days, min_markdown_qty, price_elasticity,
		       cost_per_unit, current_price
		FROM policy_parameters
		WHERE sku_id = $1
	`
	if err := sqlx.GetContext(ctx, r.db, &params, query, skuID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PolicyParameters{}, false, nil
		}
		return domain.PolicyParameters{}, false, fmt.Errorf("failed to get policy parameters: %w", err)
	}

	tierQuery := `
		SELECT days_until_expiry, discount_percent, expected_sellthrough
		FROM markdown_tiers
		WHERE sku_id = $1
		ORDER BY days_until_expiry ASC
	`
	if err := sqlx.SelectContext(ctx, r.db, &params.MarkdownTiers, tierQuery, skuID); err != nil {
		return domain.PolicyParameters{}, false, fmt.Errorf("failed to get markdown tiers: %w", err)
	}

	return params, true, nil
}

func (r *policyRepository) UpsertParameters(ctx context.Context, params *domain.PolicyParameters) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO policy_parameters (
				sku_id, category, target_coverage_days, service_level_z,
				case_pack_size, min_order_qty, max_order_qty, transit_days,
				shelf_life_days, min_markdown_qty, price_elasticity,
				cost_per_unit, current_price, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
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
		`
		if _, err := tx.ExecContext(ctx, query,
			params.SKUID, params.Category, params.TargetCoverageDays, params.ServiceLevelZ,
			params.CasePackSize, params.MinOrderQty, params.MaxOrderQty, params.TransitDays,
			params.ShelfLifeDays, params.MinMarkdownQty, params.PriceElasticity,
			params.CostPerUnit, params.CurrentPrice,
		); err != nil {
			return fmt.Errorf("failed to upsert policy parameters: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM markdown_tiers WHERE sku_id = $1`, params.SKUID); err != nil {
			return fmt.Errorf("failed to clear markdown tiers: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO markdown_tiers (sku_id, days_until_expiry, discount_percent, expected_sellthrough)
			VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare tier insert: %w", err)
		}
		defer stmt.Close()

		for _, tier := range params.MarkdownTiers {
			if _, err := stmt.ExecContext(ctx,
				params.SKUID, tier.DaysUntilExpiry, tier.DiscountPercent, tier.ExpectedSellthrough); err != nil {
				return fmt.Errorf("failed to insert markdown tier: %w", err)
			}
		}

		return nil
	})
}
