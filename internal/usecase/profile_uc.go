package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/adapter"
	"sproutcv/internal/domain/ports/repository"
)

// Compile-time check
var _ ProfileUseCase = (*profileUC)(nil)

type ProfileUseCase interface {
	// EnsureProfile returns the caller's profile, creating it on first contact.
	EnsureProfile(ctx context.Context, identity adapter.Identity) (*model.Profile, error)

	Get(ctx context.Context, userID string) (*model.Profile, error)

	// RedeemReferral links the caller to the owner of the code and grants the
	// referrer a one-time bonus. A profile can be referred at most once.
	RedeemReferral(ctx context.Context, userID, code string) error

	Count(ctx context.Context) (int, error)
}

type profileUC struct {
	profiles      repository.ProfileRepository
	ledger        LedgerUseCase
	tm            repository.TransactionManager
	referralBonus int64
	log           *zerolog.Logger
}

func NewProfileUseCase(
	profiles repository.ProfileRepository,
	ledger LedgerUseCase,
	tm repository.TransactionManager,
	referralBonus int64,
	logger *zerolog.Logger,
) *profileUC {
	return &profileUC{profiles: profiles, ledger: ledger, tm: tm, referralBonus: referralBonus, log: logger}
}

func (u *profileUC) EnsureProfile(ctx context.Context, identity adapter.Identity) (*model.Profile, error) {
	p, err := u.profiles.FindByID(ctx, repository.NoTX, identity.UserID)
	if err == nil {
		// Keep the verified flag in sync with the auth platform.
		if identity.EmailVerified && !p.EmailVerified {
			p.EmailVerified = true
			if err := u.profiles.Save(ctx, repository.NoTX, p); err != nil {
				return nil, err
			}
		}
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	p, err = model.NewProfile(identity.UserID, identity.Email, displayNameFromEmail(identity.Email))
	if err != nil {
		return nil, err
	}
	p.EmailVerified = identity.EmailVerified
	if err := u.profiles.Save(ctx, repository.NoTX, p); err != nil {
		// Lost a race with a concurrent first request for the same user.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return u.profiles.FindByID(ctx, repository.NoTX, identity.UserID)
		}
		return nil, err
	}
	u.log.Info().Str("user_id", p.ID).Msg("profile created")
	return p, nil
}

func (u *profileUC) Get(ctx context.Context, userID string) (*model.Profile, error) {
	return u.profiles.FindByID(ctx, repository.NoTX, userID)
}

func (u *profileUC) RedeemReferral(ctx context.Context, userID, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.ErrInvalidArgument
	}

	me, err := u.profiles.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return err
	}
	if me.ReferredBy != nil {
		return domain.ErrAlreadyExists
	}
	if me.ReferralCode == code {
		return domain.ErrInvalidArgument
	}

	referrer, err := u.profiles.FindByReferralCode(ctx, repository.NoTX, code)
	if err != nil {
		return err
	}

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.profiles.SetReferredBy(ctx, tx, userID, referrer.ID); err != nil {
			return err
		}
		if u.referralBonus <= 0 {
			return nil
		}
		// Reference keyed by the referred profile: the bonus lands once even
		// if the redeem request is retried.
		ref := "referral:" + userID
		desc := fmt.Sprintf("Referral bonus for inviting %s", userID)
		if _, err := u.ledger.Append(ctx, tx, referrer.ID, model.LedgerTypeBonus, u.referralBonus, ref, desc); err != nil {
			return err
		}
		return nil
	})
}

func (u *profileUC) Count(ctx context.Context) (int, error) {
	return u.profiles.Count(ctx, repository.NoTX)
}

func displayNameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
