package repository

import (
	"context"

	"sproutcv/internal/domain/model"
)

type LedgerRepository interface {
	// Append inserts an entry. A duplicate reference_id maps to
	// domain.ErrAlreadyProcessed so redelivered events stay idempotent.
	Append(ctx context.Context, tx Tx, e *model.LedgerEntry) error

	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.LedgerEntry, error)

	// SumDeltas returns the sum of all deltas for a user; used to verify the
	// reconciliation contract against the profile balance.
	SumDeltas(ctx context.Context, tx Tx, userID string) (int64, error)

	FindByReference(ctx context.Context, tx Tx, referenceID string) (*model.LedgerEntry, error)
}
