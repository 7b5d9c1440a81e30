package model

import (
	"crypto/rand"
	"io"
	"time"

	"sproutcv/internal/domain"
)

// Profile is one per user; its ID is shared with the auth platform's identity.
type Profile struct {
	ID            string // auth identity id
	Email         string
	DisplayName   string
	CreditBalance int64 // always >= 0; reconciled against the ledger
	EmailVerified bool
	ReferralCode  string  // unique, handed out to invite others
	ReferredBy    *string // profile ID of the referrer, if any (weak reference)
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewProfile(id, email, displayName string) (*Profile, error) {
	if id == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	code, err := generateReferralCode()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Profile{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		ReferralCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (p *Profile) IsZero() bool { return p == nil || p.ID == "" }

// generateReferralCode creates a secure, random, human-readable code.
// Format: XXXX-XXXX
func generateReferralCode() (string, error) {
	// A character set that avoids ambiguous characters like O/0, I/1, l.
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 8

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := 0; i < codeLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}
	return string(buffer[0:4]) + "-" + string(buffer[4:8]), nil
}
