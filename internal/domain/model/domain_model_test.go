//go:build !integration

package model

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"sproutcv/internal/domain"
)

// --- Profile Model Tests ---

func TestNewProfile(t *testing.T) {
	t.Run("should create a new profile successfully", func(t *testing.T) {
		p, err := NewProfile("user-1", "jo@example.com", "Jo")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if p == nil {
			t.Fatal("expected profile to be non-nil, but got nil")
		}
		if p.CreditBalance != 0 {
			t.Errorf("expected zero starting balance, but got %d", p.CreditBalance)
		}
		if p.ReferredBy != nil {
			t.Error("expected ReferredBy to be nil for a fresh profile")
		}
	})

	t.Run("should generate a well-formed referral code", func(t *testing.T) {
		format := regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)
		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			p, err := NewProfile("user-1", "jo@example.com", "Jo")
			if err != nil {
				t.Fatalf("expected no error, but got: %v", err)
			}
			if !format.MatchString(p.ReferralCode) {
				t.Fatalf("referral code %q does not match XXXX-XXXX without ambiguous characters", p.ReferralCode)
			}
			seen[p.ReferralCode] = true
		}
		if len(seen) < 45 {
			t.Errorf("referral codes look non-random: %d distinct out of 50", len(seen))
		}
	})

	t.Run("should fail with missing id or email", func(t *testing.T) {
		if _, err := NewProfile("", "jo@example.com", "Jo"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
		if _, err := NewProfile("user-1", "", "Jo"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
	})
}

// --- Payment Model Tests ---

func TestNewPayment(t *testing.T) {
	pkg := &CreditPackage{ID: "pkg-1", Name: "Starter", Credits: 10, Price: 500, Currency: "USD", Active: true}

	t.Run("should create a pending payment mirroring the package", func(t *testing.T) {
		p, err := NewPayment("user-1", pkg, "dodo", "prov-1", "https://pay.example/x", 30*time.Minute)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if p.Status != PaymentStatusPending {
			t.Errorf("expected status pending, but got %s", p.Status)
		}
		if p.Amount != 500 || p.Credits != 10 || p.Currency != "USD" {
			t.Errorf("payment does not mirror the package: %+v", p)
		}
		if p.ExpiresAt == nil || !p.ExpiresAt.After(time.Now()) {
			t.Error("expected a future expiry")
		}
	})

	t.Run("should fail without a provider payment id", func(t *testing.T) {
		if _, err := NewPayment("user-1", pkg, "dodo", "", "url", time.Minute); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
	})

	t.Run("should report terminal states", func(t *testing.T) {
		p, _ := NewPayment("user-1", pkg, "dodo", "prov-1", "url", time.Minute)
		if p.Terminal() {
			t.Error("pending payments are not terminal")
		}
		for _, s := range []PaymentStatus{PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusExpired} {
			p.Status = s
			if !p.Terminal() {
				t.Errorf("status %s should be terminal", s)
			}
		}
	})

	t.Run("should report overdue only while pending", func(t *testing.T) {
		p, _ := NewPayment("user-1", pkg, "dodo", "prov-1", "url", time.Minute)
		past := time.Now().Add(-time.Minute)
		p.ExpiresAt = &past
		if !p.Overdue(time.Now()) {
			t.Error("pending payment past its window should be overdue")
		}
		p.Status = PaymentStatusCompleted
		if p.Overdue(time.Now()) {
			t.Error("completed payments are never overdue")
		}
	})
}

// --- LedgerEntry Model Tests ---

func TestNewLedgerEntry(t *testing.T) {
	t.Run("should create an entry with a sortable id", func(t *testing.T) {
		a, err := NewLedgerEntry("user-1", LedgerTypePurchase, 10, 10, "pay-1", "buy")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		time.Sleep(2 * time.Millisecond) // ULIDs only order across milliseconds
		b, err := NewLedgerEntry("user-1", LedgerTypeUsage, -1, 9, "analysis-1", "spend")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if a.ID >= b.ID {
			t.Errorf("ids must sort by creation order, got %s then %s", a.ID, b.ID)
		}
		if a.ReferenceID == nil || *a.ReferenceID != "pay-1" {
			t.Error("reference id not carried")
		}
	})

	t.Run("should leave the reference nil when absent", func(t *testing.T) {
		e, err := NewLedgerEntry("user-1", LedgerTypeBonus, 5, 5, "", "promo")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if e.ReferenceID != nil {
			t.Error("expected nil reference id")
		}
	})

	t.Run("should reject a zero delta", func(t *testing.T) {
		if _, err := NewLedgerEntry("user-1", LedgerTypeBonus, 0, 5, "", "noop"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
	})
}

// --- SecurityEvent Model Tests ---

func TestNewSecurityEvent(t *testing.T) {
	t.Run("should attach the user when known", func(t *testing.T) {
		e := NewSecurityEvent("user-1", SecurityEventPaymentCompleted, map[string]interface{}{"payment_id": "pay-1"})
		if e.UserID == nil || *e.UserID != "user-1" {
			t.Error("expected the user to be attached")
		}
	})

	t.Run("should allow anonymous events", func(t *testing.T) {
		e := NewSecurityEvent("", SecurityEventWebhookRejected, nil)
		if e.UserID != nil {
			t.Error("expected a nil user for anonymous events")
		}
	})
}
