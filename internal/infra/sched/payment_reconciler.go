package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/ports/repository"
	"sproutcv/internal/usecase"
)

// PaymentReconciler periodically scans stale pending payments and re-checks
// them against the provider. This covers webhooks that were never delivered
// or a process crash mid-completion; CheckStatus is idempotent so rechecking
// an already-settled payment is harmless.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to recheck
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.PaymentUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &PaymentReconciler{uc: uc, payments: payments, interval: interval, staleAfter: staleAfter, log: logger}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return
		}
		w.log.Error().Err(err).Msg("payment-reconciler: list pending failed")
		return
	}
	for _, p := range pending {
		// The owner is the caller here; no claimed status.
		if _, err := w.uc.CheckStatus(ctx, p.UserID, p.ID, ""); err != nil {
			if errors.Is(err, domain.ErrProviderUnavailable) {
				// Provider is down; the next tick retries the whole batch.
				w.log.Warn().Str("payment_id", p.ID).Msg("payment-reconciler: provider unavailable, backing off")
				return
			}
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("payment-reconciler: recheck failed")
			continue
		}
		w.log.Debug().Str("payment_id", p.ID).Msg("payment-reconciler: rechecked")
	}
}
