package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/booking-core/internal/domain"
)

const unitColumns = `id, product_type, parent_id, name, total_capacity, reserved_capacity, sold_capacity,
base_price, price_modifier, currency, is_premium, is_accessible, version`

// LedgerRepository is the durable capacity ledger. Per-unit serialization
// comes from the row lock taken inside TryAdjust.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) Get(ctx context.Context, unitID string) (domain.InventoryUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM inventory_units WHERE id = $1`
	unit, err := scanUnit(r.queryRow(ctx, query, unitID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.InventoryUnit{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.InventoryUnit{}, domain.ErrUnitNotFound
		}
		return domain.InventoryUnit{}, fmt.Errorf("get unit: %w", err)
	}
	return unit, nil
}

func (r *LedgerRepository) TryAdjust(ctx context.Context, unitID string, deltaReserved, deltaSold int) (domain.InventoryUnit, error) {
	var result domain.InventoryUnit

	err := withTx(ctx, r.pool, func(txCtx context.Context) error {
		query := `SELECT ` + unitColumns + ` FROM inventory_units WHERE id = $1 FOR UPDATE`
		unit, err := scanUnit(r.queryRow(txCtx, query, unitID))
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			if err == pgx.ErrNoRows {
				return domain.ErrUnitNotFound
			}
			return fmt.Errorf("lock unit: %w", err)
		}

		reserved := unit.ReservedCapacity + deltaReserved
		sold := unit.SoldCapacity + deltaSold
		if reserved < 0 || sold < 0 {
			return domain.ErrInvalidCapacity
		}
		if reserved+sold > unit.TotalCapacity {
			return &domain.InsufficientCapacityError{
				UnitID:    unitID,
				Requested: deltaReserved + deltaSold,
				Available: unit.Available(),
			}
		}

		const stmt = `
UPDATE inventory_units
SET reserved_capacity = $2, sold_capacity = $3, version = version + 1
WHERE id = $1`
		if _, err := r.exec(txCtx, stmt, unitID, reserved, sold); err != nil {
			if isCheckViolation(err) {
				return &domain.InsufficientCapacityError{
					UnitID:    unitID,
					Requested: deltaReserved + deltaSold,
					Available: unit.Available(),
				}
			}
			return fmt.Errorf("adjust unit: %w", err)
		}

		unit.ReservedCapacity = reserved
		unit.SoldCapacity = sold
		unit.Version++
		result = unit
		return nil
	})
	if err != nil {
		return domain.InventoryUnit{}, err
	}
	return result, nil
}

func (r *LedgerRepository) CreateUnit(ctx context.Context, unit domain.InventoryUnit) error {
	const stmt = `
INSERT INTO inventory_units (id, product_type, parent_id, name, total_capacity, reserved_capacity,
	sold_capacity, base_price, price_modifier, currency, is_premium, is_accessible, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.exec(ctx, stmt,
		unit.ID,
		unit.ProductType,
		unit.ParentID,
		unit.Name,
		unit.TotalCapacity,
		unit.ReservedCapacity,
		unit.SoldCapacity,
		unit.BasePrice,
		unit.PriceModifier,
		unit.Currency,
		unit.IsPremium,
		unit.IsAccessible,
		unit.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrInvalidID
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListUnits(ctx context.Context, parentID string) ([]domain.InventoryUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM inventory_units WHERE ($1 = '' OR parent_id = $1) ORDER BY id`
	rows, err := r.query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []domain.InventoryUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, unit)
	}
	return out, rows.Err()
}

func scanUnit(row pgx.Row) (domain.InventoryUnit, error) {
	var u domain.InventoryUnit
	err := row.Scan(
		&u.ID,
		&u.ProductType,
		&u.ParentID,
		&u.Name,
		&u.TotalCapacity,
		&u.ReservedCapacity,
		&u.SoldCapacity,
		&u.BasePrice,
		&u.PriceModifier,
		&u.Currency,
		&u.IsPremium,
		&u.IsAccessible,
		&u.Version,
	)
	return u, err
}

func (r *LedgerRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *LedgerRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *LedgerRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
