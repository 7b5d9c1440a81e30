//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/repository"
	"sproutcv/internal/usecase"
)

type ledgerUCTestDeps struct {
	ledger   *MockLedgerRepo
	profiles *MockProfileRepo
	events   *MockSecurityEventRepo
	tm       *MockTxManager
}

func newLedgerUCDeps() *ledgerUCTestDeps {
	return &ledgerUCTestDeps{
		ledger:   NewMockLedgerRepo(),
		profiles: NewMockProfileRepo(),
		events:   NewMockSecurityEventRepo(),
		tm:       NewMockTxManager(),
	}
}

func (d *ledgerUCTestDeps) uc() usecase.LedgerUseCase {
	return usecase.NewLedgerUseCase(d.ledger, d.profiles, d.events, d.tm, newTestLogger())
}

func (d *ledgerUCTestDeps) seedProfile(ctx context.Context, t *testing.T, id string, balance int64) *model.Profile {
	t.Helper()
	p, err := model.NewProfile(id, id+"@example.com", id)
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	p.CreditBalance = balance
	if err := d.profiles.Save(ctx, repository.NoTX, p); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	return p
}

func TestLedgerUseCase_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("should append an entry and move the balance", func(t *testing.T) {
		deps := newLedgerUCDeps()
		deps.seedProfile(ctx, t, "user-1", 3)

		balance, err := deps.uc().Append(ctx, fakeTx{}, "user-1", model.LedgerTypePurchase, 10, "pay-1", "Purchase of 10 credits")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if balance != 13 {
			t.Errorf("expected balance 13, got %d", balance)
		}
		prof, _ := deps.profiles.FindByID(ctx, repository.NoTX, "user-1")
		if prof.CreditBalance != 13 {
			t.Errorf("profile balance not updated, got %d", prof.CreditBalance)
		}
		entries := deps.ledger.Entries()
		if len(entries) != 1 || entries[0].BalanceAfter != 13 {
			t.Fatalf("expected one entry with balance_after 13, got %+v", entries)
		}
	})

	t.Run("should reject a spend below zero", func(t *testing.T) {
		deps := newLedgerUCDeps()
		deps.seedProfile(ctx, t, "user-1", 2)

		_, err := deps.uc().Append(ctx, fakeTx{}, "user-1", model.LedgerTypeUsage, -3, "analysis-1", "Resume analysis")
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			t.Fatalf("expected ErrInsufficientCredits, got %v", err)
		}
		prof, _ := deps.profiles.FindByID(ctx, repository.NoTX, "user-1")
		if prof.CreditBalance != 2 {
			t.Errorf("balance must be untouched, got %d", prof.CreditBalance)
		}
		if entries := deps.ledger.Entries(); len(entries) != 0 {
			t.Errorf("no entry may be written, got %d", len(entries))
		}
	})

	t.Run("should surface duplicate references without touching the balance", func(t *testing.T) {
		deps := newLedgerUCDeps()
		deps.seedProfile(ctx, t, "user-1", 0)

		uc := deps.uc()
		if _, err := uc.Append(ctx, fakeTx{}, "user-1", model.LedgerTypePurchase, 10, "pay-1", "first"); err != nil {
			t.Fatalf("first append: %v", err)
		}
		_, err := uc.Append(ctx, fakeTx{}, "user-1", model.LedgerTypePurchase, 10, "pay-1", "replay")
		if !errors.Is(err, domain.ErrAlreadyProcessed) {
			t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
		}
		prof, _ := deps.profiles.FindByID(ctx, repository.NoTX, "user-1")
		if prof.CreditBalance != 10 {
			t.Errorf("expected balance 10 after replay, got %d", prof.CreditBalance)
		}
	})

	t.Run("should reject a zero delta", func(t *testing.T) {
		deps := newLedgerUCDeps()
		deps.seedProfile(ctx, t, "user-1", 5)

		if _, err := deps.uc().Append(ctx, fakeTx{}, "user-1", model.LedgerTypeBonus, 0, "", "nothing"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestLedgerUseCase_AdminAdjust(t *testing.T) {
	ctx := context.Background()

	t.Run("should grant a bonus and leave an audit event", func(t *testing.T) {
		deps := newLedgerUCDeps()
		deps.seedProfile(ctx, t, "user-1", 1)

		balance, err := deps.uc().AdminAdjust(ctx, "user-1", model.LedgerTypeBonus, 5, "make-good")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if balance != 6 {
			t.Errorf("expected balance 6, got %d", balance)
		}
		if got := deps.events.ByType(model.SecurityEventAdminAdjustment); len(got) != 1 {
			t.Fatalf("expected one admin adjustment event, got %d", len(got))
		}
	})

	t.Run("should only allow bonus and refund entry types", func(t *testing.T) {
		deps := newLedgerUCDeps()
		deps.seedProfile(ctx, t, "user-1", 1)

		for _, typ := range []model.LedgerEntryType{model.LedgerTypePurchase, model.LedgerTypeUsage} {
			if _, err := deps.uc().AdminAdjust(ctx, "user-1", typ, 5, "nope"); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("type %s: expected ErrInvalidArgument, got %v", typ, err)
			}
		}
	})
}

func TestLedgerUseCase_VerifyBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("should reconcile when the ledger sums to the profile balance", func(t *testing.T) {
		deps := newLedgerUCDeps()
		deps.seedProfile(ctx, t, "user-1", 0)

		uc := deps.uc()
		uc.Append(ctx, fakeTx{}, "user-1", model.LedgerTypePurchase, 10, "pay-1", "buy")
		uc.Append(ctx, fakeTx{}, "user-1", model.LedgerTypeUsage, -3, "analysis-1", "spend")

		ok, sum, balance, err := uc.VerifyBalance(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ok || sum != 7 || balance != 7 {
			t.Errorf("expected ok with 7/7, got ok=%v sum=%d balance=%d", ok, sum, balance)
		}
	})

	t.Run("should flag a drifted profile balance", func(t *testing.T) {
		deps := newLedgerUCDeps()
		p := deps.seedProfile(ctx, t, "user-1", 0)

		uc := deps.uc()
		uc.Append(ctx, fakeTx{}, "user-1", model.LedgerTypePurchase, 10, "pay-1", "buy")

		// Simulate drift written outside the ledger path.
		p.CreditBalance = 42
		deps.profiles.Save(ctx, repository.NoTX, p)

		ok, sum, balance, err := uc.VerifyBalance(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ok {
			t.Error("expected reconciliation failure")
		}
		if sum != 10 || balance != 42 {
			t.Errorf("expected sum 10 and balance 42, got %d/%d", sum, balance)
		}
	})
}
