package repository

import (
	"context"
	"time"

	"sproutcv/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByProviderPaymentID(ctx context.Context, tx Tx, providerPaymentID string) (*model.Payment, error)

	// UpdateStatusIfPending atomically moves a payment out of 'pending'.
	// Returns false when the payment was already in a terminal state, which
	// is how concurrent webhook deliveries and client polls are serialized.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, completedAt *time.Time) (bool, error)

	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	ListExpiredPending(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Payment, error)
	SumCompletedByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}
