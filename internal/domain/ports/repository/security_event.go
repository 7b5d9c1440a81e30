package repository

import (
	"context"
	"time"

	"sproutcv/internal/domain/model"
)

type SecurityEventRepository interface {
	Save(ctx context.Context, tx Tx, e *model.SecurityEvent) error
	List(ctx context.Context, tx Tx, since time.Time, limit, offset int) ([]*model.SecurityEvent, error)
	CountByType(ctx context.Context, tx Tx, since time.Time) (map[string]int, error)
}
