package repository

import (
	"context"

	"sproutcv/internal/domain/model"
)

type ProfileRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Profile) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Profile, error)
	FindByReferralCode(ctx context.Context, tx Tx, code string) (*model.Profile, error)

	// LockForUpdate loads a profile under SELECT ... FOR UPDATE.
	// Must be called with a live transaction handle.
	LockForUpdate(ctx context.Context, tx Tx, id string) (*model.Profile, error)

	// UpdateBalance writes the new credit balance. Callers are expected to
	// hold the row lock and to append the matching ledger entry in the same tx.
	UpdateBalance(ctx context.Context, tx Tx, id string, balance int64) error

	SetReferredBy(ctx context.Context, tx Tx, id, referrerID string) error
	Count(ctx context.Context, tx Tx) (int, error)
}
