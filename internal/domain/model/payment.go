package model

import (
	"time"

	"sproutcv/internal/domain"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // checkout created; awaiting provider truth
	PaymentStatusCompleted PaymentStatus = "completed" // confirmed at provider, credits applied
	PaymentStatusFailed    PaymentStatus = "failed"    // provider reported failure/cancellation
	PaymentStatusExpired   PaymentStatus = "expired"   // checkout window elapsed while still pending
)

// Payment records a single credit purchase attempt against the external provider.
type Payment struct {
	ID                string        // UUID (internal)
	UserID            string        // profile ID
	PackageID         string        // which credit package the user is buying
	Provider          string        // e.g. "dodo"
	ProviderPaymentID string        // provider-assigned id; idempotency key for completion
	Amount            int64         // minor units (integer, avoids float errors)
	Currency          string        // ISO 4217 code
	Credits           int64         // credits granted on completion
	Status            PaymentStatus // see constants above
	CheckoutURL       string        // provider-hosted checkout page
	ExpiresAt         *time.Time    // pending payments past this are expired, never completed
	CompletedAt       *time.Time    // set when completed
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Meta              map[string]interface{} // optional extra metadata (serialized in DB as JSONB)
}

// NewPayment builds a pending payment for the given package and provider session.
func NewPayment(userID string, pkg *CreditPackage, provider, providerPaymentID, checkoutURL string, ttl time.Duration) (*Payment, error) {
	if userID == "" || pkg == nil || providerPaymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	p := &Payment{
		ID:                uuid.NewString(),
		UserID:            userID,
		PackageID:         pkg.ID,
		Provider:          provider,
		ProviderPaymentID: providerPaymentID,
		Amount:            pkg.Price,
		Currency:          pkg.Currency,
		Credits:           pkg.Credits,
		Status:            PaymentStatusPending,
		CheckoutURL:       checkoutURL,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		p.ExpiresAt = &exp
	}
	return p, nil
}

// Terminal reports whether the payment can no longer change state.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusFailed || p.Status == PaymentStatusExpired
}

// Overdue reports whether a still-pending payment has outlived its checkout window.
func (p *Payment) Overdue(now time.Time) bool {
	return p.Status == PaymentStatusPending && p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}
