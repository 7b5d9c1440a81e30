//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
)

func TestLedgerRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewLedgerRepo(testPool)
	profileRepo := NewProfileRepo(testPool)

	profile, _ := model.NewProfile("user-l", "ledger@example.com", "Ledger")

	setup := func(t *testing.T) {
		cleanup(t)
		if err := profileRepo.Save(ctx, nil, profile); err != nil {
			t.Fatalf("save profile: %v", err)
		}
	}

	t.Run("append and list", func(t *testing.T) {
		setup(t)

		e1, _ := model.NewLedgerEntry(profile.ID, model.LedgerTypePurchase, 10, 10, "pay-1", "Starter pack")
		e2, _ := model.NewLedgerEntry(profile.ID, model.LedgerTypeUsage, -1, 9, "an-1", "Resume analysis")
		for _, e := range []*model.LedgerEntry{e1, e2} {
			if err := repo.Append(ctx, nil, e); err != nil {
				t.Fatalf("append: %v", err)
			}
		}

		got, err := repo.ListByUser(ctx, nil, profile.ID, 10, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(got))
		}
		// ULID ordering: newest first.
		if got[0].ID != e2.ID {
			t.Errorf("expected newest entry first")
		}

		sum, err := repo.SumDeltas(ctx, nil, profile.ID)
		if err != nil {
			t.Fatalf("sum: %v", err)
		}
		if sum != 9 {
			t.Errorf("expected sum 9, got %d", sum)
		}
	})

	t.Run("duplicate reference id maps to ErrAlreadyProcessed", func(t *testing.T) {
		setup(t)

		e1, _ := model.NewLedgerEntry(profile.ID, model.LedgerTypePurchase, 10, 10, "pay-dup", "first")
		if err := repo.Append(ctx, nil, e1); err != nil {
			t.Fatalf("append: %v", err)
		}
		e2, _ := model.NewLedgerEntry(profile.ID, model.LedgerTypePurchase, 10, 20, "pay-dup", "replay")
		err := repo.Append(ctx, nil, e2)
		if !errors.Is(err, domain.ErrAlreadyProcessed) {
			t.Errorf("expected ErrAlreadyProcessed, got %v", err)
		}

		found, err := repo.FindByReference(ctx, nil, "pay-dup")
		if err != nil {
			t.Fatalf("FindByReference: %v", err)
		}
		if found.ID != e1.ID {
			t.Errorf("expected original entry to survive")
		}
	})

	t.Run("entries without reference do not collide", func(t *testing.T) {
		setup(t)

		e1, _ := model.NewLedgerEntry(profile.ID, model.LedgerTypeBonus, 5, 5, "", "welcome")
		e2, _ := model.NewLedgerEntry(profile.ID, model.LedgerTypeBonus, 5, 10, "", "promo")
		for _, e := range []*model.LedgerEntry{e1, e2} {
			if err := repo.Append(ctx, nil, e); err != nil {
				t.Fatalf("append nil-reference: %v", err)
			}
		}
	})
}
