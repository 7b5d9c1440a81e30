package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/repository"
)

var _ repository.AnalysisRepository = (*analysisRepo)(nil)

type analysisRepo struct{ pool *pgxpool.Pool }

func NewAnalysisRepo(pool *pgxpool.Pool) *analysisRepo {
	return &analysisRepo{pool: pool}
}

const analysisColumns = `id, user_id, provider, model, resume_ciphertext, jobdesc_digest, score, result, tokens_in, tokens_out, credit_cost, created_at`

func scanAnalysis(row pgx.Row) (*model.Analysis, error) {
	a := &model.Analysis{}
	if err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.Model, &a.ResumeCiphertext, &a.JobDescDigest, &a.Score, &a.Result, &a.TokensIn, &a.TokensOut, &a.CreditCost, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}

func (r *analysisRepo) Save(ctx context.Context, tx repository.Tx, a *model.Analysis) error {
	const q = `
INSERT INTO analyses (
  id, user_id, provider, model, resume_ciphertext, jobdesc_digest, score, result, tokens_in, tokens_out, credit_cost, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
);`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.UserID, a.Provider, a.Model, a.ResumeCiphertext, a.JobDescDigest, a.Score, a.Result, a.TokensIn, a.TokensOut, a.CreditCost, a.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *analysisRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM analyses WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanAnalysis(row)
}

func (r *analysisRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Analysis, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + analysisColumns + ` FROM analyses WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;`
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

	var out []*model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *analysisRepo) CountSince(ctx context.Context, tx repository.Tx, userID string, sinceHours int) (int, error) {
	if sinceHours <= 0 {
		sinceHours = 24
	}
	q := fmt.Sprintf(`SELECT COUNT(*) FROM analyses WHERE user_id=$1 AND created_at >= NOW() - INTERVAL '%d hours';`, sinceHours)
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
