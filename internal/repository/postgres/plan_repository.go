package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

type planRepository struct {
	db *DB
}

func NewPlanRepository(db *DB) *planRepository {
	return &planRepository{db: db}
}

// SavePlan replaces the stored plan for one unit. Only the latest plan is
// kept; a re-run fully supersedes the previous horizon.
func (r *planRepository) SavePlan(ctx context.Context, storeID int64, skuID string, runAt time.Time, days []domain.PlanDay) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM plan_days WHERE store_id = $1 AND sku_id = $2`,
			storeID, skuID); err != nil {
			return fmt.Errorf("failed to clear previous plan: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO plan_days (
				store_id, sku_id, day_offset, recommended_shelf_qty, refill_qty,
				order_qty, overstock_risk, markdown_action, projected_waste_qty,
				projected_loss_amount, expected_sales_qty, end_shelf_qty,
				end_backroom_qty, run_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare plan insert: %w", err)
		}
		defer stmt.Close()

		for _, day := range days {
			var markdown interface{}
			if day.Markdown != nil {
				payload, err := json.Marshal(day.Markdown)
				if err != nil {
					return fmt.Errorf("failed to marshal markdown action: %w", err)
				}
				markdown = payload
			}

			if _, err := stmt.ExecContext(ctx,
				storeID, skuID, day.DayOffset, day.RecommendedShelfQty, day.RefillQty,
				day.OrderQty, day.OverstockRisk, markdown, day.ProjectedWasteQty,
				day.ProjectedLossAmount, day.ExpectedSalesQty, day.EndShelfQty,
				day.EndBackroomQty, runAt,
			); err != nil {
				return fmt.Errorf("failed to insert plan day: %w", err)
			}
		}

		return nil
	})
}

func (r *planRepository) GetLatestPlan(ctx context.Context, storeID int64, skuID string) ([]domain.PlanDay, error) {
	query := `
		SELECT day_offset, recommended_shelf_qty, refill_qty, order_qty,
		       overstock_risk, markdown_action, projected_waste_qty,
		       projected_loss_amount, expected_sales_qty, end_shelf_qty,
		       end_backroom_qty
		FROM plan_days
		WHERE store_id = $1 AND sku_id = $2
		ORDER BY day_offset ASC
	`
	rows, err := r.db.QueryContext(ctx, query, storeID, skuID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}
	defer rows.Close()

	var days []domain.PlanDay
	for rows.Next() {
		day := domain.PlanDay{StoreID: storeID, SKUID: skuID}
		var markdown []byte
		if err := rows.Scan(
			&day.DayOffset, &day.RecommendedShelfQty, &day.RefillQty, &day.OrderQty,
			&day.OverstockRisk, &markdown, &day.ProjectedWasteQty,
			&day.ProjectedLossAmount, &day.ExpectedSalesQty, &day.EndShelfQty,
			&day.EndBackroomQty,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan day: %w", err)
		}
		if len(markdown) > 0 {
			var action domain.MarkdownAction
			if err := json.Unmarshal(markdown, &action); err != nil {
				return nil, fmt.Errorf("failed to unmarshal markdown action: %w", err)
			}
			day.Markdown = &action
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plan rows: %w", err)
	}

	return days, nil
}
