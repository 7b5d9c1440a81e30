package model

import (
	"time"

	"sproutcv/internal/domain"

	"github.com/google/uuid"
)

// CreditPackage is a purchasable bundle of analysis credits.
type CreditPackage struct {
	ID        string
	Name      string
	Credits   int64
	Price     int64 // minor units
	Currency  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewCreditPackage(id, name string, credits, price int64, currency string) (*CreditPackage, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" || credits <= 0 || price <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &CreditPackage{
		ID:        id,
		Name:      name,
		Credits:   credits,
		Price:     price,
		Currency:  currency,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
