package repository

import (
	"context"

	"sproutcv/internal/domain/model"
)

type AnalysisRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Analysis) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Analysis, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.Analysis, error)
	CountSince(ctx context.Context, tx Tx, userID string, sinceHours int) (int, error)
}
