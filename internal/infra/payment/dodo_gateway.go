package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*DodoGateway)(nil)

// DodoGateway implements adapter.PaymentGateway against the Dodo Payments
// REST API using direct HTTP calls.
type DodoGateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewDodoGateway creates a gateway for the given API base URL
// (e.g. https://live.dodopayments.com or the test-mode URL).
func NewDodoGateway(apiKey, baseURL string) *DodoGateway {
	return &DodoGateway{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *DodoGateway) Name() string { return "dodo" }

// dodoPaymentResponse covers both the create-payment and get-payment payloads;
// fields absent from a given call are left zero.
type dodoPaymentResponse struct {
	PaymentID   string `json:"payment_id"`
	PaymentLink string `json:"payment_link"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
}

// CreateCheckout implements adapter.PaymentGateway.CreateCheckout.
func (g *DodoGateway) CreateCheckout(ctx context.Context, amount int64, currency string, customer adapter.Customer, meta map[string]interface{}) (adapter.CheckoutSession, error) {
	requestData := map[string]interface{}{
		"payment_link": true,
		"billing_currency": currency,
		"customer": map[string]interface{}{
			"email": customer.Email,
			"name":  customer.Name,
		},
		"product_cart": []map[string]interface{}{
			{"amount": amount, "quantity": 1},
		},
	}
	if meta != nil {
		requestData["metadata"] = meta
	}

	var out dodoPaymentResponse
	if err := g.do(ctx, http.MethodPost, "/payments", requestData, &out); err != nil {
		return adapter.CheckoutSession{}, err
	}
	if out.PaymentID == "" || out.PaymentLink == "" {
		return adapter.CheckoutSession{}, fmt.Errorf("dodo create payment: missing payment_id or payment_link")
	}
	return adapter.CheckoutSession{PaymentID: out.PaymentID, CheckoutURL: out.PaymentLink}, nil
}

// GetPaymentStatus implements adapter.PaymentGateway.GetPaymentStatus.
// This call is the authoritative truth check before credits are granted.
func (g *DodoGateway) GetPaymentStatus(ctx context.Context, providerPaymentID string) (adapter.PaymentTruth, error) {
	var out dodoPaymentResponse
	if err := g.do(ctx, http.MethodGet, "/payments/"+providerPaymentID, nil, &out); err != nil {
		return adapter.PaymentTruth{}, err
	}
	return adapter.PaymentTruth{
		Status:   normalizeStatus(out.Status),
		Amount:   out.TotalAmount,
		Currency: out.Currency,
	}, nil
}

func (g *DodoGateway) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		// Transport failure: the provider's truth is unknown, not negative.
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: dodo returned %d", domain.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("dodo error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w, body: %s", err, string(raw))
	}
	return nil
}

func normalizeStatus(s string) adapter.ProviderStatus {
	switch s {
	case "succeeded":
		return adapter.ProviderStatusSucceeded
	case "failed":
		return adapter.ProviderStatusFailed
	case "cancelled":
		return adapter.ProviderStatusCancelled
	default:
		// "processing", "requires_customer_action" and friends all mean
		// the payment is still in flight.
		return adapter.ProviderStatusProcessing
	}
}
