package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/booking-core/internal/domain"
)

// HoldRepository persists holds and their unit refs. Status transitions are
// guarded UPDATEs so only one of release/consume/expire wins a race.
type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) Create(ctx context.Context, hold domain.Hold) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		const holdStmt = `
INSERT INTO holds (id, owner_token, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5)`
		if _, err := r.exec(txCtx, holdStmt, hold.ID, hold.OwnerToken, hold.Status, hold.CreatedAt, hold.ExpiresAt); err != nil {
			if isUniqueViolation(err) || isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("create hold: %w", err)
		}

		const refStmt = `INSERT INTO hold_units (hold_id, unit_id, quantity) VALUES ($1, $2, $3)`
		for unitID, qty := range hold.UnitRefs {
			if _, err := r.exec(txCtx, refStmt, hold.ID, unitID, qty); err != nil {
				if isInvalidUUID(err) {
					return domain.ErrInvalidID
				}
				return fmt.Errorf("create hold unit ref: %w", err)
			}
		}
		return nil
	})
}

func (r *HoldRepository) Get(ctx context.Context, holdID string) (domain.Hold, error) {
	const query = `SELECT id, owner_token, status, created_at, expires_at FROM holds WHERE id = $1`

	var h domain.Hold
	err := r.queryRow(ctx, query, holdID).Scan(&h.ID, &h.OwnerToken, &h.Status, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}

	if h.UnitRefs, err = r.loadRefs(ctx, holdID); err != nil {
		return domain.Hold{}, err
	}
	return h, nil
}

func (r *HoldRepository) FindActiveByOwner(ctx context.Context, ownerToken string) (*domain.Hold, error) {
	const query = `
SELECT id, owner_token, status, created_at, expires_at
FROM holds
WHERE owner_token = $1 AND status = 'active'
ORDER BY created_at DESC
LIMIT 1`

	var h domain.Hold
	err := r.queryRow(ctx, query, ownerToken).Scan(&h.ID, &h.OwnerToken, &h.Status, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active hold: %w", err)
	}

	if h.UnitRefs, err = r.loadRefs(ctx, h.ID); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HoldRepository) Transition(ctx context.Context, holdID string, from, to domain.HoldStatus) (domain.Hold, error) {
	const stmt = `
UPDATE holds SET status = $3
WHERE id = $1 AND status = $2
RETURNING id, owner_token, status, created_at, expires_at`

	var h domain.Hold
	err := r.queryRow(ctx, stmt, holdID, from, to).Scan(&h.ID, &h.OwnerToken, &h.Status, &h.CreatedAt, &h.ExpiresAt)
	if err == nil {
		if h.UnitRefs, err = r.loadRefs(ctx, holdID); err != nil {
			return domain.Hold{}, err
		}
		return h, nil
	}
	if isInvalidUUID(err) {
		return domain.Hold{}, domain.ErrInvalidID
	}
	if err != pgx.ErrNoRows {
		return domain.Hold{}, fmt.Errorf("transition hold: %w", err)
	}

	// Lost the race or wrong id: report which.
	current, getErr := r.Get(ctx, holdID)
	if getErr != nil {
		return domain.Hold{}, getErr
	}
	return current, domain.ErrHoldNotActive
}

func (r *HoldRepository) UpdateExpiry(ctx context.Context, holdID string, expiresAt time.Time) (domain.Hold, error) {
	const stmt = `
UPDATE holds SET expires_at = $2
WHERE id = $1 AND status = 'active'
RETURNING id, owner_token, status, created_at, expires_at`

	var h domain.Hold
	err := r.queryRow(ctx, stmt, holdID, expiresAt).Scan(&h.ID, &h.OwnerToken, &h.Status, &h.CreatedAt, &h.ExpiresAt)
	if err == nil {
		if h.UnitRefs, err = r.loadRefs(ctx, holdID); err != nil {
			return domain.Hold{}, err
		}
		return h, nil
	}
	if isInvalidUUID(err) {
		return domain.Hold{}, domain.ErrInvalidID
	}
	if err != pgx.ErrNoRows {
		return domain.Hold{}, fmt.Errorf("renew hold: %w", err)
	}

	current, getErr := r.Get(ctx, holdID)
	if getErr != nil {
		return domain.Hold{}, getErr
	}
	return current, domain.ErrHoldNotActive
}

func (r *HoldRepository) DueForExpiry(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	const query = `
SELECT id, owner_token, status, created_at, expires_at
FROM holds
WHERE status = 'active' AND expires_at <= $1
ORDER BY expires_at
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due for expiry: %w", err)
	}
	defer rows.Close()

	var out []domain.Hold
	for rows.Next() {
		var h domain.Hold
		if err := rows.Scan(&h.ID, &h.OwnerToken, &h.Status, &h.CreatedAt, &h.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].UnitRefs, err = r.loadRefs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *HoldRepository) loadRefs(ctx context.Context, holdID string) (map[string]int, error) {
	const query = `SELECT unit_id, quantity FROM hold_units WHERE hold_id = $1`

	rows, err := r.query(ctx, query, holdID)
	if err != nil {
		return nil, fmt.Errorf("load hold unit refs: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]int)
	for rows.Next() {
		var unitID string
		var qty int
		if err := rows.Scan(&unitID, &qty); err != nil {
			return nil, fmt.Errorf("scan hold unit ref: %w", err)
		}
		refs[unitID] = qty
	}
	return refs, rows.Err()
}

func (r *HoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *HoldRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *HoldRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
