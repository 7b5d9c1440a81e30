package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/repository"
	"sproutcv/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

type LedgerUseCase interface {
	// Append writes an entry and the matching profile balance inside the
	// caller's transaction. Returns the balance after applying delta.
	Append(ctx context.Context, tx repository.Tx, userID string, typ model.LedgerEntryType, delta int64, referenceID, description string) (int64, error)

	// AdminAdjust applies a manual bonus/refund in its own transaction and
	// records a security event for the audit trail.
	AdminAdjust(ctx context.Context, userID string, typ model.LedgerEntryType, delta int64, description string) (int64, error)

	Balance(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, limit, offset int) ([]*model.LedgerEntry, error)

	// VerifyBalance replays the ledger and compares it with the profile
	// balance. A false result means the reconciliation contract is broken.
	VerifyBalance(ctx context.Context, userID string) (ok bool, ledgerSum, profileBalance int64, err error)
}

type ledgerUC struct {
	ledger   repository.LedgerRepository
	profiles repository.ProfileRepository
	events   repository.SecurityEventRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewLedgerUseCase(
	ledger repository.LedgerRepository,
	profiles repository.ProfileRepository,
	events repository.SecurityEventRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *ledgerUC {
	return &ledgerUC{ledger: ledger, profiles: profiles, events: events, tm: tm, log: logger}
}

func (u *ledgerUC) Append(ctx context.Context, tx repository.Tx, userID string, typ model.LedgerEntryType, delta int64, referenceID, description string) (int64, error) {
	profile, err := u.profiles.LockForUpdate(ctx, tx, userID)
	if err != nil {
		return 0, fmt.Errorf("lock profile: %w", err)
	}

	newBalance := profile.CreditBalance + delta
	if newBalance < 0 {
		return 0, domain.ErrInsufficientCredits
	}

	entry, err := model.NewLedgerEntry(userID, typ, delta, newBalance, referenceID, description)
	if err != nil {
		return 0, err
	}
	if err := u.ledger.Append(ctx, tx, entry); err != nil {
		return 0, err
	}
	if err := u.profiles.UpdateBalance(ctx, tx, userID, newBalance); err != nil {
		return 0, err
	}

	metrics.AddCredits(string(typ), delta)
	u.log.Info().
		Str("user_id", userID).
		Str("type", string(typ)).
		Int64("delta", delta).
		Int64("balance_after", newBalance).
		Msg("ledger entry appended")
	return newBalance, nil
}

func (u *ledgerUC) AdminAdjust(ctx context.Context, userID string, typ model.LedgerEntryType, delta int64, description string) (int64, error) {
	if typ != model.LedgerTypeBonus && typ != model.LedgerTypeRefund {
		return 0, domain.ErrInvalidArgument
	}
	var newBalance int64
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		newBalance, err = u.Append(ctx, tx, userID, typ, delta, "", description)
		if err != nil {
			return err
		}
		ev := model.NewSecurityEvent(userID, model.SecurityEventAdminAdjustment, map[string]interface{}{
			"type":        string(typ),
			"delta":       delta,
			"description": description,
		})
		return u.events.Save(ctx, tx, ev)
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (u *ledgerUC) Balance(ctx context.Context, userID string) (int64, error) {
	profile, err := u.profiles.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return 0, err
	}
	return profile.CreditBalance, nil
}

func (u *ledgerUC) History(ctx context.Context, userID string, limit, offset int) ([]*model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.ledger.ListByUser(ctx, repository.NoTX, userID, limit, offset)
}

func (u *ledgerUC) VerifyBalance(ctx context.Context, userID string) (bool, int64, int64, error) {
	sum, err := u.ledger.SumDeltas(ctx, repository.NoTX, userID)
	if err != nil {
		return false, 0, 0, err
	}
	profile, err := u.profiles.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return false, 0, 0, err
	}
	if sum != profile.CreditBalance {
		u.log.Error().
			Str("user_id", userID).
			Int64("ledger_sum", sum).
			Int64("profile_balance", profile.CreditBalance).
			Msg("ledger does not reconcile with profile balance")
		return false, sum, profile.CreditBalance, nil
	}
	return true, sum, profile.CreditBalance, nil
}
