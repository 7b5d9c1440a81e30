package payment

import (
	"context"
	"fmt"
	"sync"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory gateway for tests and local development.
type NoopGateway struct {
	mu      sync.Mutex
	seq     int64
	intents map[string]adapter.PaymentTruth // provider payment id -> truth
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{
		intents: make(map[string]adapter.PaymentTruth),
	}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopGateway) CreateCheckout(ctx context.Context, amount int64, currency string, customer adapter.Customer, meta map[string]interface{}) (adapter.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next()
	g.intents[id] = adapter.PaymentTruth{
		Status:   adapter.ProviderStatusProcessing,
		Amount:   amount,
		Currency: currency,
	}
	return adapter.CheckoutSession{PaymentID: id, CheckoutURL: "https://example.test/pay/" + id}, nil
}

func (g *NoopGateway) GetPaymentStatus(ctx context.Context, providerPaymentID string) (adapter.PaymentTruth, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	truth, ok := g.intents[providerPaymentID]
	if !ok {
		return adapter.PaymentTruth{}, domain.ErrNotFound
	}
	return truth, nil
}

// Resolve marks a noop payment as settled; tests drive the state machine with it.
func (g *NoopGateway) Resolve(providerPaymentID string, status adapter.ProviderStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if truth, ok := g.intents[providerPaymentID]; ok {
		truth.Status = status
		g.intents[providerPaymentID] = truth
	}
}
