package adapter

import "context"

// Provider-reported payment states, normalized across gateways.
type ProviderStatus string

const (
	ProviderStatusSucceeded  ProviderStatus = "succeeded"
	ProviderStatusProcessing ProviderStatus = "processing"
	ProviderStatusFailed     ProviderStatus = "failed"
	ProviderStatusCancelled  ProviderStatus = "cancelled"
)

// Customer identifies the buyer on the provider side.
type Customer struct {
	ID    string
	Email string
	Name  string
}

// CheckoutSession is the provider's answer to a checkout request.
type CheckoutSession struct {
	PaymentID   string // provider-assigned payment id
	CheckoutURL string // hosted checkout page the browser is sent to
}

// PaymentTruth is the provider's authoritative view of a payment. This is the
// sole source of truth for success; a status claimed by the browser is never
// trusted.
type PaymentTruth struct {
	Status   ProviderStatus
	Amount   int64 // minor units
	Currency string
}

// PaymentGateway is the port for the external payment processor.
// Implementations map transport failures and provider 5xx responses to
// domain.ErrProviderUnavailable, which callers treat as retryable and
// never as payment success or failure.
type PaymentGateway interface {
	Name() string

	CreateCheckout(ctx context.Context, amount int64, currency string, customer Customer, meta map[string]interface{}) (CheckoutSession, error)
	GetPaymentStatus(ctx context.Context, providerPaymentID string) (PaymentTruth, error)
}
