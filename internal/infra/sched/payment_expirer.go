package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"sproutcv/internal/usecase"
)

// PaymentExpirer periodically moves overdue pending payments to expired.
// Expiry is local bookkeeping; the provider is never consulted for it.
type PaymentExpirer struct {
	interval time.Duration
	uc       usecase.PaymentUseCase
	log      *zerolog.Logger
}

func NewPaymentExpirer(interval time.Duration, uc usecase.PaymentUseCase, logger *zerolog.Logger) *PaymentExpirer {
	expLog := logger.With().Str("component", "PaymentExpirer").Logger()
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PaymentExpirer{
		interval: interval,
		uc:       uc,
		log:      &expLog,
	}
}

func (w *PaymentExpirer) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting payment expirer")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment expirer")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.uc.ExpireOverdue(ctx, 200)
			if err != nil {
				w.log.Error().Err(err).Msg("payment expirer error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("overdue payments expired")
			}
		}
	}
}
