//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/adapter"
	"sproutcv/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func now() time.Time { return time.Now().Truncate(time.Millisecond) }

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// fakeTx stands in for pgx.Tx inside the mock transaction manager.
type fakeTx struct{}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opt, fn)
	}
	return fn(ctx, fakeTx{})
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu      sync.Mutex
	NameVal string
	seq     int

	CreateCheckoutFunc   func(ctx context.Context, amount int64, currency string, customer adapter.Customer, meta map[string]interface{}) (adapter.CheckoutSession, error)
	GetPaymentStatusFunc func(ctx context.Context, providerPaymentID string) (adapter.PaymentTruth, error)

	// tracing of invocations
	Calls struct {
		CreateCheckout int
		GetStatus      []string
	}
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string {
	if m.NameVal == "" {
		return "mockpay"
	}
	return m.NameVal
}

func (m *MockPaymentGateway) CreateCheckout(ctx context.Context, amount int64, currency string, customer adapter.Customer, meta map[string]interface{}) (adapter.CheckoutSession, error) {
	m.mu.Lock()
	m.Calls.CreateCheckout++
	m.seq++
	id := uuid.NewString()
	m.mu.Unlock()
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, amount, currency, customer, meta)
	}
	return adapter.CheckoutSession{PaymentID: "prov-" + id, CheckoutURL: "https://pay.example/" + id}, nil
}

func (m *MockPaymentGateway) GetPaymentStatus(ctx context.Context, providerPaymentID string) (adapter.PaymentTruth, error) {
	m.mu.Lock()
	m.Calls.GetStatus = append(m.Calls.GetStatus, providerPaymentID)
	m.mu.Unlock()
	if m.GetPaymentStatusFunc != nil {
		return m.GetPaymentStatusFunc(ctx, providerPaymentID)
	}
	return adapter.PaymentTruth{Status: adapter.ProviderStatusProcessing}, nil
}

// ---- Mock AIServiceAdapter ----

type MockAI struct {
	mu sync.Mutex

	CountTokensFunc func(ctx context.Context, model string, msgs []adapter.Message) (int, error)
	CompleteFunc    func(ctx context.Context, model string, msgs []adapter.Message) (string, adapter.Usage, error)

	Calls struct {
		Count    int
		Complete []string
	}
}

var _ adapter.AIServiceAdapter = (*MockAI)(nil)

func (m *MockAI) Name() string { return "mockai" }

func (m *MockAI) CountTokens(ctx context.Context, model string, msgs []adapter.Message) (int, error) {
	m.mu.Lock()
	m.Calls.Count++
	m.mu.Unlock()
	if m.CountTokensFunc != nil {
		return m.CountTokensFunc(ctx, model, msgs)
	}
	n := 0
	for _, x := range msgs {
		n += len(x.Content)
	} // dumb baseline
	return n, nil
}

func (m *MockAI) Complete(ctx context.Context, model string, msgs []adapter.Message) (string, adapter.Usage, error) {
	m.mu.Lock()
	m.Calls.Complete = append(m.Calls.Complete, model)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, model, msgs)
	}
	return "SCORE: 80\nLooks solid.", adapter.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

// =============================
// Repositories
// =============================

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu         sync.Mutex
	byID       map[string]*model.Payment
	byProvider map[string]*model.Payment

	SaveFunc                  func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	UpdateStatusIfPendingFunc func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, completedAt *time.Time) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{byID: map[string]*model.Payment{}, byProvider: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byProvider[p.ProviderPaymentID]; ok && existing.ID != p.ID {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.byID[cp.ID] = &cp
	r.byProvider[cp.ProviderPaymentID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByProviderPaymentID(ctx context.Context, tx repository.Tx, providerPaymentID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byProvider[providerPaymentID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, completedAt *time.Time) (bool, error) {
	if r.UpdateStatusIfPendingFunc != nil {
		return r.UpdateStatusIfPendingFunc(ctx, tx, id, status, completedAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if completedAt != nil {
		p.CompletedAt = completedAt
	}
	p.UpdatedAt = now()
	return true, nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byID {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortPayments(out)
	return out, nil
}

func (r *MockPaymentRepo) ListExpiredPending(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byID {
		if p.Status == model.PaymentStatusPending && p.ExpiresAt != nil && p.ExpiresAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortPayments(out)
	return out, nil
}

func (r *MockPaymentRepo) SumCompletedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, p := range r.byID {
		if p.Status == model.PaymentStatusCompleted {
			sum += p.Amount
		}
	}
	return sum, nil
}

func sortPayments(ps []*model.Payment) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt) })
}

// ---- Mock ProfileRepository ----

type MockProfileRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Profile
	byCode map[string]*model.Profile

	SaveFunc          func(ctx context.Context, tx repository.Tx, p *model.Profile) error
	LockForUpdateFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Profile, error)
}

var _ repository.ProfileRepository = (*MockProfileRepo)(nil)

func NewMockProfileRepo() *MockProfileRepo {
	return &MockProfileRepo{byID: map[string]*model.Profile{}, byCode: map[string]*model.Profile{}}
}

func (r *MockProfileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[cp.ID] = &cp
	r.byCode[cp.ReferralCode] = &cp
	return nil
}

func (r *MockProfileRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockProfileRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byCode[code]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockProfileRepo) LockForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Profile, error) {
	if r.LockForUpdateFunc != nil {
		return r.LockForUpdateFunc(ctx, tx, id)
	}
	return r.FindByID(ctx, tx, id)
}

func (r *MockProfileRepo) UpdateBalance(ctx context.Context, tx repository.Tx, id string, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.CreditBalance = balance
	return nil
}

func (r *MockProfileRepo) SetReferredBy(ctx context.Context, tx repository.Tx, id, referrerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.ReferredBy != nil {
		return domain.ErrAlreadyProcessed
	}
	ref := referrerID
	p.ReferredBy = &ref
	return nil
}

func (r *MockProfileRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

// ---- Mock LedgerRepository ----

type MockLedgerRepo struct {
	mu      sync.Mutex
	entries []*model.LedgerEntry
	byRef   map[string]*model.LedgerEntry

	AppendFunc func(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error
}

var _ repository.LedgerRepository = (*MockLedgerRepo)(nil)

func NewMockLedgerRepo() *MockLedgerRepo {
	return &MockLedgerRepo{byRef: map[string]*model.LedgerEntry{}}
}

func (r *MockLedgerRepo) Append(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error {
	if r.AppendFunc != nil {
		return r.AppendFunc(ctx, tx, e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ReferenceID != nil {
		if _, ok := r.byRef[*e.ReferenceID]; ok {
			return domain.ErrAlreadyProcessed
		}
	}
	cp := *e
	r.entries = append(r.entries, &cp)
	if cp.ReferenceID != nil {
		r.byRef[*cp.ReferenceID] = &cp
	}
	return nil
}

func (r *MockLedgerRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.LedgerEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID == userID {
			cp := *r.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockLedgerRepo) SumDeltas(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, e := range r.entries {
		if e.UserID == userID {
			sum += e.Delta
		}
	}
	return sum, nil
}

func (r *MockLedgerRepo) FindByReference(ctx context.Context, tx repository.Tx, referenceID string) (*model.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byRef[referenceID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// Entries returns a snapshot for assertions.
func (r *MockLedgerRepo) Entries() []model.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.LedgerEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// ---- Mock SecurityEventRepository ----

type MockSecurityEventRepo struct {
	mu     sync.Mutex
	events []*model.SecurityEvent

	SaveFunc func(ctx context.Context, tx repository.Tx, e *model.SecurityEvent) error
}

var _ repository.SecurityEventRepository = (*MockSecurityEventRepo)(nil)

func NewMockSecurityEventRepo() *MockSecurityEventRepo {
	return &MockSecurityEventRepo{}
}

func (r *MockSecurityEventRepo) Save(ctx context.Context, tx repository.Tx, e *model.SecurityEvent) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *MockSecurityEventRepo) List(ctx context.Context, tx repository.Tx, since time.Time, limit, offset int) ([]*model.SecurityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SecurityEvent
	for _, e := range r.events {
		if !e.CreatedAt.Before(since) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSecurityEventRepo) CountByType(ctx context.Context, tx repository.Tx, since time.Time) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, e := range r.events {
		if !e.CreatedAt.Before(since) {
			out[e.EventType]++
		}
	}
	return out, nil
}

// ByType returns recorded events of one type, for assertions.
func (r *MockSecurityEventRepo) ByType(eventType string) []model.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SecurityEvent
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, *e)
		}
	}
	return out
}

// ---- Mock CreditPackageRepository ----

type MockPackageRepo struct {
	mu   sync.Mutex
	data map[string]*model.CreditPackage
}

var _ repository.CreditPackageRepository = (*MockPackageRepo)(nil)

func NewMockPackageRepo() *MockPackageRepo {
	return &MockPackageRepo{data: map[string]*model.CreditPackage{}}
}

func (r *MockPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.CreditPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[cp.ID] = &cp
	return nil
}

func (r *MockPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CreditPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.CreditPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CreditPackage
	for _, p := range r.data {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

// ---- Mock AnalysisRepository ----

type MockAnalysisRepo struct {
	mu   sync.Mutex
	data []*model.Analysis

	SaveFunc func(ctx context.Context, tx repository.Tx, a *model.Analysis) error
}

var _ repository.AnalysisRepository = (*MockAnalysisRepo)(nil)

func NewMockAnalysisRepo() *MockAnalysisRepo {
	return &MockAnalysisRepo{}
}

func (r *MockAnalysisRepo) Save(ctx context.Context, tx repository.Tx, a *model.Analysis) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.data = append(r.data, &cp)
	return nil
}

func (r *MockAnalysisRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.data {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockAnalysisRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Analysis
	for i := len(r.data) - 1; i >= 0; i-- {
		if r.data[i].UserID == userID {
			cp := *r.data[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockAnalysisRepo) CountSince(ctx context.Context, tx repository.Tx, userID string, sinceHours int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.data {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}
