package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/adapter"
	"sproutcv/internal/domain/ports/repository"
	"sproutcv/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// ProviderEvent is a parsed, signature-verified webhook payload.
type ProviderEvent struct {
	EventType string // e.g. "payment.succeeded"
	PaymentID string // provider payment id
	Status    string // provider-declared status (informational; re-verified)
	Amount    int64
	Currency  string
}

// StatusResult is what a client poll gets back.
type StatusResult struct {
	Payment *model.Payment
	Message string
}

type PaymentUseCase interface {
	// Checkout creates a provider checkout session and a pending payment.
	Checkout(ctx context.Context, userID, packageID string) (*model.Payment, error)

	// HandleProviderEvent is the webhook-driven reconciliation entry point.
	// Redelivered events for settled payments are accepted as no-ops.
	HandleProviderEvent(ctx context.Context, evt ProviderEvent) error

	// CheckStatus is the client-poll-driven entry point. claimedStatus is the
	// status the client believes the payment has ("" when not asserted); it is
	// never trusted, only compared against provider truth for fraud signals.
	CheckStatus(ctx context.Context, callerID, paymentID, claimedStatus string) (*StatusResult, error)

	// ExpireOverdue transitions overdue pending payments to expired without
	// contacting the provider.
	ExpireOverdue(ctx context.Context, limit int) (int, error)

	ListPackages(ctx context.Context) ([]*model.CreditPackage, error)
	SumRevenueByPeriod(ctx context.Context, period string) (int64, error)
}

type paymentUC struct {
	payments    repository.PaymentRepository
	packages    repository.CreditPackageRepository
	profiles    repository.ProfileRepository
	events      repository.SecurityEventRepository
	ledger      LedgerUseCase
	gateway     adapter.PaymentGateway
	tm          repository.TransactionManager
	checkoutTTL time.Duration
	log         *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	packages repository.CreditPackageRepository,
	profiles repository.ProfileRepository,
	events repository.SecurityEventRepository,
	ledger LedgerUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	checkoutTTL time.Duration,
	logger *zerolog.Logger,
) *paymentUC {
	if checkoutTTL <= 0 {
		checkoutTTL = time.Hour
	}
	return &paymentUC{
		payments:    payments,
		packages:    packages,
		profiles:    profiles,
		events:      events,
		ledger:      ledger,
		gateway:     gateway,
		tm:          tm,
		checkoutTTL: checkoutTTL,
		log:         logger,
	}
}

func (u *paymentUC) Checkout(ctx context.Context, userID, packageID string) (*model.Payment, error) {
	profile, err := u.profiles.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	pkg, err := u.packages.FindByID(ctx, repository.NoTX, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Active {
		return nil, domain.ErrNotFound
	}

	session, err := u.gateway.CreateCheckout(ctx, pkg.Price, pkg.Currency, adapter.Customer{
		ID:    profile.ID,
		Email: profile.Email,
		Name:  profile.DisplayName,
	}, map[string]interface{}{
		"package_id": pkg.ID,
		"credits":    pkg.Credits,
	})
	if err != nil {
		return nil, err
	}

	p, err := model.NewPayment(userID, pkg, u.gateway.Name(), session.PaymentID, session.CheckoutURL, u.checkoutTTL)
	if err != nil {
		return nil, err
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}

	metrics.IncPayment(string(model.PaymentStatusPending))
	u.log.Info().
		Str("payment_id", p.ID).
		Str("provider_payment_id", p.ProviderPaymentID).
		Str("user_id", userID).
		Int64("amount", p.Amount).
		Msg("checkout created")
	return p, nil
}

func (u *paymentUC) HandleProviderEvent(ctx context.Context, evt ProviderEvent) error {
	if evt.PaymentID == "" {
		return domain.ErrInvalidArgument
	}

	p, err := u.payments.FindByProviderPaymentID(ctx, repository.NoTX, evt.PaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Webhook for an unknown payment: accept and drop (idempotent).
			u.log.Warn().Str("provider_payment_id", evt.PaymentID).Msg("webhook for unknown payment ignored")
			return nil
		}
		return err
	}
	if p.Terminal() {
		// Redelivery after settlement is a silent no-op, never double-credited.
		u.log.Debug().Str("payment_id", p.ID).Str("status", string(p.Status)).Msg("webhook redelivery ignored")
		return nil
	}

	switch evt.EventType {
	case "payment.succeeded":
		// Defense in depth: the event alone is not enough, re-check with the
		// provider before moving any money.
		truth, err := u.gateway.GetPaymentStatus(ctx, p.ProviderPaymentID)
		if err != nil {
			return err
		}
		if truth.Status != adapter.ProviderStatusSucceeded {
			return u.recordStatusMismatch(ctx, p, evt.Status, truth)
		}
		if err := u.complete(ctx, p, truth); err != nil {
			if errors.Is(err, domain.ErrAlreadyProcessed) {
				return nil
			}
			return err
		}
		return nil

	case "payment.failed", "payment.cancelled":
		if _, err := u.markFailed(ctx, p); err != nil {
			return err
		}
		return nil

	default:
		u.log.Debug().Str("event_type", evt.EventType).Msg("unhandled provider event type")
		return nil
	}
}

func (u *paymentUC) CheckStatus(ctx context.Context, callerID, paymentID, claimedStatus string) (*StatusResult, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != callerID {
		ev := model.NewSecurityEvent(callerID, model.SecurityEventOwnershipDenied, map[string]interface{}{
			"payment_id": p.ID,
			"owner_id":   p.UserID,
		})
		if saveErr := u.events.Save(ctx, repository.NoTX, ev); saveErr != nil {
			u.log.Error().Err(saveErr).Msg("failed to record ownership denial")
		}
		return nil, domain.ErrForbidden
	}

	if p.Terminal() {
		return &StatusResult{Payment: p, Message: statusMessage(p.Status)}, nil
	}

	// Overdue pending payments expire locally; the provider is not consulted.
	if p.Overdue(time.Now()) {
		won, err := u.markExpired(ctx, p)
		if err != nil {
			return nil, err
		}
		if !won {
			// A concurrent webhook settled this payment first. Report the
			// state it actually reached, not a stale expiry.
			fresh, err := u.payments.FindByID(ctx, repository.NoTX, p.ID)
			if err != nil {
				return nil, err
			}
			return &StatusResult{Payment: fresh, Message: statusMessage(fresh.Status)}, nil
		}
		return &StatusResult{Payment: p, Message: statusMessage(model.PaymentStatusExpired)}, nil
	}

	truth, err := u.gateway.GetPaymentStatus(ctx, p.ProviderPaymentID)
	if err != nil {
		return nil, err
	}

	// A client claim that diverges from provider truth is a fraud signal.
	if claimedStatus != "" && claimedStatus != string(truth.Status) {
		ev := model.NewSecurityEvent(callerID, model.SecurityEventStatusMismatch, map[string]interface{}{
			"payment_id":      p.ID,
			"claimed_status":  claimedStatus,
			"provider_status": string(truth.Status),
		})
		if saveErr := u.events.Save(ctx, repository.NoTX, ev); saveErr != nil {
			u.log.Error().Err(saveErr).Msg("failed to record status mismatch")
		}
	}

	switch truth.Status {
	case adapter.ProviderStatusSucceeded:
		if err := u.complete(ctx, p, truth); err != nil && !errors.Is(err, domain.ErrAlreadyProcessed) {
			return nil, err
		}
		fresh, err := u.payments.FindByID(ctx, repository.NoTX, p.ID)
		if err != nil {
			return nil, err
		}
		return &StatusResult{Payment: fresh, Message: statusMessage(fresh.Status)}, nil

	case adapter.ProviderStatusFailed, adapter.ProviderStatusCancelled:
		if _, err := u.markFailed(ctx, p); err != nil {
			return nil, err
		}
		return &StatusResult{Payment: p, Message: statusMessage(model.PaymentStatusFailed)}, nil

	default:
		// Still processing on the provider side; no credits, report truth.
		return &StatusResult{Payment: p, Message: "Payment is still being processed. Check again shortly."}, nil
	}
}

// complete applies the one-and-only completion transition: CAS on status,
// ledger credit, and security event in a single transaction. Losing the CAS
// race surfaces as ErrAlreadyProcessed, which callers treat as success.
func (u *paymentUC) complete(ctx context.Context, p *model.Payment, truth adapter.PaymentTruth) error {
	if truth.Amount != p.Amount || (truth.Currency != "" && truth.Currency != p.Currency) {
		ev := model.NewSecurityEvent(p.UserID, model.SecurityEventAmountMismatch, map[string]interface{}{
			"payment_id":        p.ID,
			"local_amount":      p.Amount,
			"provider_amount":   truth.Amount,
			"local_currency":    p.Currency,
			"provider_currency": truth.Currency,
		})
		if saveErr := u.events.Save(ctx, repository.NoTX, ev); saveErr != nil {
			u.log.Error().Err(saveErr).Msg("failed to record amount mismatch")
		}
		metrics.IncSecurityEvent(model.SecurityEventAmountMismatch)
		return domain.ErrAmountMismatch
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now()
		won, err := u.payments.UpdateStatusIfPending(ctx, tx, p.ID, model.PaymentStatusCompleted, &now)
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrAlreadyProcessed
		}

		desc := fmt.Sprintf("Purchase of %d credits (payment %s)", p.Credits, p.ID)
		if _, err := u.ledger.Append(ctx, tx, p.UserID, model.LedgerTypePurchase, p.Credits, p.ID, desc); err != nil {
			return err
		}

		ev := model.NewSecurityEvent(p.UserID, model.SecurityEventPaymentCompleted, map[string]interface{}{
			"payment_id":          p.ID,
			"provider_payment_id": p.ProviderPaymentID,
			"amount":              p.Amount,
			"credits":             p.Credits,
		})
		return u.events.Save(ctx, tx, ev)
	})
	if err != nil {
		return err
	}

	p.Status = model.PaymentStatusCompleted
	metrics.IncPayment(string(model.PaymentStatusCompleted))
	metrics.AddPaymentRevenue(p.Currency, p.Amount)
	u.log.Info().
		Str("payment_id", p.ID).
		Str("user_id", p.UserID).
		Int64("credits", p.Credits).
		Msg("payment completed, credits applied")
	return nil
}

func (u *paymentUC) recordStatusMismatch(ctx context.Context, p *model.Payment, claimed string, truth adapter.PaymentTruth) error {
	ev := model.NewSecurityEvent(p.UserID, model.SecurityEventStatusMismatch, map[string]interface{}{
		"payment_id":      p.ID,
		"claimed_status":  claimed,
		"provider_status": string(truth.Status),
		"source":          "webhook",
	})
	if saveErr := u.events.Save(ctx, repository.NoTX, ev); saveErr != nil {
		u.log.Error().Err(saveErr).Msg("failed to record status mismatch")
	}
	metrics.IncSecurityEvent(model.SecurityEventStatusMismatch)
	return domain.ErrStatusMismatch
}

func (u *paymentUC) markFailed(ctx context.Context, p *model.Payment) (bool, error) {
	won, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, model.PaymentStatusFailed, nil)
	if err != nil {
		return false, err
	}
	if won {
		p.Status = model.PaymentStatusFailed
		metrics.IncPayment(string(model.PaymentStatusFailed))
		u.log.Info().Str("payment_id", p.ID).Msg("payment marked failed")
	}
	return won, nil
}

func (u *paymentUC) markExpired(ctx context.Context, p *model.Payment) (bool, error) {
	won, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, model.PaymentStatusExpired, nil)
	if err != nil {
		return false, err
	}
	if won {
		p.Status = model.PaymentStatusExpired
		metrics.IncPayment(string(model.PaymentStatusExpired))
		u.log.Info().Str("payment_id", p.ID).Msg("pending payment expired")
	}
	return won, nil
}

func (u *paymentUC) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	overdue, err := u.payments.ListExpiredPending(ctx, repository.NoTX, time.Now(), limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, p := range overdue {
		won, err := u.markExpired(ctx, p)
		if err != nil {
			u.log.Error().Err(err).Str("payment_id", p.ID).Msg("failed to expire payment")
			continue
		}
		if won {
			n++
		}
	}
	return n, nil
}

func (u *paymentUC) ListPackages(ctx context.Context) ([]*model.CreditPackage, error) {
	return u.packages.ListActive(ctx, repository.NoTX)
}

func (u *paymentUC) SumRevenueByPeriod(ctx context.Context, period string) (int64, error) {
	return u.payments.SumCompletedByPeriod(ctx, repository.NoTX, period)
}

func statusMessage(s model.PaymentStatus) string {
	switch s {
	case model.PaymentStatusCompleted:
		return "Payment confirmed. Credits have been added to your account."
	case model.PaymentStatusFailed:
		return "Payment was not completed. No credits were added."
	case model.PaymentStatusExpired:
		return "This checkout has expired. Start a new purchase to buy credits."
	default:
		return "Payment is still being processed. Check again shortly."
	}
}
