package repository

import (
	"context"

	"sproutcv/internal/domain/model"
)

type CreditPackageRepository interface {
	Save(ctx context.Context, tx Tx, p *model.CreditPackage) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CreditPackage, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.CreditPackage, error)
}
