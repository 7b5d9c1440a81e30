package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

const ledgerColumns = `id, user_id, entry_type, delta, balance_after, description, reference_id, created_at`

func scanLedgerEntry(row pgx.Row) (*model.LedgerEntry, error) {
	e := &model.LedgerEntry{}
	if err := row.Scan(&e.ID, &e.UserID, &e.Type, &e.Delta, &e.BalanceAfter, &e.Description, &e.ReferenceID, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

// Append is insert-only; the ledger has no update path. A duplicate
// reference_id trips the unique index and maps to ErrAlreadyProcessed,
// which is how redelivered provider events are deduplicated.
func (r *ledgerRepo) Append(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error {
	const q = `
INSERT INTO credits_ledger (
  id, user_id, entry_type, delta, balance_after, description, reference_id, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.Type, e.Delta, e.BalanceAfter, e.Description, e.ReferenceID, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		if isUniqueViolation(err) {
			return domain.ErrAlreadyProcessed
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ledgerRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + ledgerColumns + ` FROM credits_ledger WHERE user_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit, offset)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *ledgerRepo) SumDeltas(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(delta),0) FROM credits_ledger WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *ledgerRepo) FindByReference(ctx context.Context, tx repository.Tx, referenceID string) (*model.LedgerEntry, error) {
	const q = `SELECT ` + ledgerColumns + ` FROM credits_ledger WHERE reference_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, referenceID)
	if err != nil {
		return nil, err
	}
	return scanLedgerEntry(row)
}
