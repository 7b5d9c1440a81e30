//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v4"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/repository"
)

func TestProfileRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewProfileRepo(testPool)
	tm := NewTxManager(testPool)

	t.Run("save and find by id and referral code", func(t *testing.T) {
		cleanup(t)

		p, _ := model.NewProfile("user-p", "p@example.com", "P")
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("save: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.ReferralCode != p.ReferralCode {
			t.Errorf("referral code mismatch")
		}

		got, err = repo.FindByReferralCode(ctx, nil, p.ReferralCode)
		if err != nil {
			t.Fatalf("FindByReferralCode: %v", err)
		}
		if got.ID != p.ID {
			t.Errorf("expected %s, got %s", p.ID, got.ID)
		}

		if _, err := repo.FindByID(ctx, nil, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("LockForUpdate requires a transaction", func(t *testing.T) {
		cleanup(t)

		p, _ := model.NewProfile("user-lock", "lock@example.com", "Lock")
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("save: %v", err)
		}

		if _, err := repo.LockForUpdate(ctx, nil, p.ID); !errors.Is(err, domain.ErrInvalidExecContext) {
			t.Errorf("expected ErrInvalidExecContext without tx, got %v", err)
		}

		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			locked, err := repo.LockForUpdate(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			return repo.UpdateBalance(ctx, tx, locked.ID, 42)
		})
		if err != nil {
			t.Fatalf("WithTx: %v", err)
		}

		got, _ := repo.FindByID(ctx, nil, p.ID)
		if got.CreditBalance != 42 {
			t.Errorf("expected balance 42, got %d", got.CreditBalance)
		}
	})

	t.Run("SetReferredBy applies once", func(t *testing.T) {
		cleanup(t)

		referrer, _ := model.NewProfile("user-a", "a@example.com", "A")
		referred, _ := model.NewProfile("user-b", "b@example.com", "B")
		for _, p := range []*model.Profile{referrer, referred} {
			if err := repo.Save(ctx, nil, p); err != nil {
				t.Fatalf("save: %v", err)
			}
		}

		if err := repo.SetReferredBy(ctx, nil, referred.ID, referrer.ID); err != nil {
			t.Fatalf("SetReferredBy: %v", err)
		}
		err := repo.SetReferredBy(ctx, nil, referred.ID, referrer.ID)
		if !errors.Is(err, domain.ErrAlreadyProcessed) {
			t.Errorf("expected ErrAlreadyProcessed on second redeem, got %v", err)
		}
	})
}
