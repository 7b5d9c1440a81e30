package model

import (
	"time"

	"sproutcv/internal/domain"

	"github.com/oklog/ulid/v2"
)

type LedgerEntryType string

const (
	LedgerTypePurchase LedgerEntryType = "purchase" // credits bought through the payment provider
	LedgerTypeUsage    LedgerEntryType = "usage"    // credits consumed by an analysis
	LedgerTypeBonus    LedgerEntryType = "bonus"    // referral or promotional grant
	LedgerTypeRefund   LedgerEntryType = "refund"   // manual/provider refund
)

// LedgerEntry is one append-only row of the credit audit trail.
// Replaying deltas for a user in order must reproduce the profile balance.
type LedgerEntry struct {
	ID           string // ULID; lexically ordered by creation time for audit replay
	UserID       string
	Type         LedgerEntryType
	Delta        int64   // signed credit change
	BalanceAfter int64   // profile balance after applying Delta
	Description  string  // human-readable
	ReferenceID  *string // payment/analysis id; unique when set (idempotency guard)
	CreatedAt    time.Time
}

func NewLedgerEntry(userID string, typ LedgerEntryType, delta, balanceAfter int64, referenceID, description string) (*LedgerEntry, error) {
	if userID == "" || delta == 0 {
		return nil, domain.ErrInvalidArgument
	}
	e := &LedgerEntry{
		ID:           ulid.Make().String(),
		UserID:       userID,
		Type:         typ,
		Delta:        delta,
		BalanceAfter: balanceAfter,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	if referenceID != "" {
		e.ReferenceID = &referenceID
	}
	return e, nil
}
