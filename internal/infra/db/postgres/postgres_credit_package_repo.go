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

var _ repository.CreditPackageRepository = (*creditPackageRepo)(nil)

type creditPackageRepo struct{ pool *pgxpool.Pool }

func NewCreditPackageRepo(pool *pgxpool.Pool) *creditPackageRepo {
	return &creditPackageRepo{pool: pool}
}

const packageColumns = `id, name, credits, price, currency, active, created_at, updated_at`

func scanPackage(row pgx.Row) (*model.CreditPackage, error) {
	p := &model.CreditPackage{}
	if err := row.Scan(&p.ID, &p.Name, &p.Credits, &p.Price, &p.Currency, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *creditPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.CreditPackage) error {
	const q = `
INSERT INTO credit_packages (id, name, credits, price, currency, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, credits=$3, price=$4, currency=$5, active=$6, updated_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Credits, p.Price, p.Currency, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *creditPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CreditPackage, error) {
	const q = `SELECT ` + packageColumns + ` FROM credit_packages WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}

func (r *creditPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.CreditPackage, error) {
	const q = `SELECT ` + packageColumns + ` FROM credit_packages WHERE active ORDER BY price ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.CreditPackage
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
