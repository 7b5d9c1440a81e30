package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/repository"
)

var _ repository.SecurityEventRepository = (*securityEventRepo)(nil)

type securityEventRepo struct{ pool *pgxpool.Pool }

func NewSecurityEventRepo(pool *pgxpool.Pool) *securityEventRepo {
	return &securityEventRepo{pool: pool}
}

func (r *securityEventRepo) Save(ctx context.Context, tx repository.Tx, e *model.SecurityEvent) error {
	const q = `
INSERT INTO security_events (id, user_id, event_type, metadata, created_at)
VALUES ($1,$2,$3,$4,$5);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.EventType, e.Metadata, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *securityEventRepo) List(ctx context.Context, tx repository.Tx, since time.Time, limit, offset int) ([]*model.SecurityEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT id, user_id, event_type, metadata, created_at FROM security_events WHERE created_at >= $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, since, limit, offset)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.SecurityEvent
	for rows.Next() {
		e := &model.SecurityEvent{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &e.Metadata, &e.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *securityEventRepo) CountByType(ctx context.Context, tx repository.Tx, since time.Time) (map[string]int, error) {
	const q = `SELECT event_type, COUNT(*) FROM security_events WHERE created_at >= $1 GROUP BY event_type;`
	rows, err := queryRows(ctx, r.pool, tx, q, since)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[typ] = n
	}
	return out, nil
}
