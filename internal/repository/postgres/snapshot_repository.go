package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

type snapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) *snapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) GetSnapshot(ctx context.Context, storeID int64, skuID string) (*domain.InventorySnapshot, error) {
	snapshot := &domain.InventorySnapshot{StoreID: storeID, SKUID: skuID}

	batchQuery := `
		SELECT quantity, days_until_expiry, location
		FROM inventory_batches
		WHERE store_id = $1 AND sku_id = $2
		ORDER BY days_until_expiry ASC, location ASC
	`
	if err := sqlx.SelectContext(ctx, r.db, &snapshot.Batches, batchQuery, storeID, skuID); err != nil {
		return nil, fmt.Errorf("failed to get inventory batches: %w", err)
	}

	transitQuery := `
		SELECT quantity, arrival_day_offset
		FROM in_transit_orders
		WHERE store_id = $1 AND sku_id = $2
		ORDER BY arrival_day_offset ASC
	`
	if err := sqlx.SelectContext(ctx, r.db, &snapshot.InTransit, transitQuery, storeID, skuID); err != nil {
		return nil, fmt.Errorf("failed to get in-transit orders: %w", err)
	}

	return snapshot, nil
}

func (r *snapshotRepository) ListUnits(ctx context.Context, storeIDs []int64, skuIDs []string) ([]domain.UnitKey, error) {
	query := `
		SELECT DISTINCT store_id, sku_id
		FROM inventory_batches
	`
	var conditions []string
	var args []interface{}

	if len(storeIDs) > 0 {
		q, a, err := sqlx.In("store_id IN (?)", storeIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to build store filter: %w", err)
		}
		conditions = append(conditions, q)
		args = append(args, a...)
	}
	if len(skuIDs) > 0 {
		q, a, err := sqlx.In("sku_id IN (?)", skuIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to build sku filter: %w", err)
		}
		conditions = append(conditions, q)
		args = append(args, a...)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY store_id, sku_id"
	query = r.db.Rebind(query)

	var units []domain.UnitKey
	if err := sqlx.SelectContext(ctx, r.db, &units, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}

// SaveSnapshot replaces the stored batches and in-transit orders for one
// unit. Replacement rather than merge: a snapshot is a full observation.
func (r *snapshotRepository) SaveSnapshot(ctx context.Context, snapshot *domain.InventorySnapshot) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM inventory_batches WHERE store_id = $1 AND sku_id = $2`,
			snapshot.StoreID, snapshot.SKUID); err != nil {
			return fmt.Errorf("failed to clear inventory batches: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM in_transit_orders WHERE store_id = $1 AND sku_id = $2`,
			snapshot.StoreID, snapshot.SKUID); err != nil {
			return fmt.Errorf("failed to clear in-transit orders: %w", err)
		}

		batchStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO inventory_batches (store_id, sku_id, quantity, days_until_expiry, location, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare batch insert: %w", err)
		}
		defer batchStmt.Close()

		for _, b := range snapshot.Batches {
			if _, err := batchStmt.ExecContext(ctx,
				snapshot.StoreID, snapshot.SKUID, b.Quantity, b.DaysUntilExpiry, b.Location); err != nil {
				return fmt.Errorf("failed to insert inventory batch: %w", err)
			}
		}

		transitStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO in_transit_orders (store_id, sku_id, quantity, arrival_day_offset, created_at)
			VALUES ($1, $2, $3, $4, NOW())
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare in-transit insert: %w", err)
		}
		defer transitStmt.Close()

		for _, o := range snapshot.InTransit {
			if _, err := transitStmt.ExecContext(ctx,
				snapshot.StoreID, snapshot.SKUID, o.Quantity, o.ArrivalDayOffset); err != nil {
				return fmt.Errorf("failed to insert in-transit order: %w", err)
			}
		}

		return nil
	})
}
