package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/repository"
	"sproutcv/internal/infra/metrics"
	"sproutcv/internal/usecase"
)

// providerWebhookEvent is the standard-webhooks envelope the payment provider
// delivers. Signature headers are webhook-id / webhook-timestamp /
// webhook-signature; the svix verifier accepts them directly.
type providerWebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		PaymentID   string `json:"payment_id"`
		Status      string `json:"status"`
		TotalAmount int64  `json:"total_amount"`
		Currency    string `json:"currency"`
	} `json:"data"`
}

// handleWebhook is the provider-facing reconciliation entry point. It never
// requires user auth; authenticity comes from the HMAC signature alone.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 65536 // 64KB

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read webhook body")
		metrics.IncWebhook("rejected")
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := s.webhookVerifier.Verify(payload, r.Header); err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrVerificationFailed, err)
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("webhook signature rejected")
		ev := model.NewSecurityEvent("", model.SecurityEventWebhookRejected, map[string]interface{}{
			"remote_addr": r.RemoteAddr,
			"reason":      "invalid_signature",
		})
		if saveErr := s.events.Save(r.Context(), repository.NoTX, ev); saveErr != nil {
			s.log.Error().Err(saveErr).Msg("failed to record webhook rejection")
		}
		metrics.IncWebhook("rejected")
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	// Redeliveries of an already-seen delivery id are acknowledged without
	// reprocessing. Database idempotency still backstops this when the
	// guard is unavailable.
	deliveryID := r.Header.Get("webhook-id")
	if s.replays != nil {
		first, err := s.replays.FirstDelivery(r.Context(), deliveryID)
		if err != nil {
			s.log.Warn().Err(err).Msg("replay guard unavailable")
		}
		if !first {
			metrics.IncWebhook("replayed")
			respondJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
	}

	var event providerWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.log.Error().Err(err).Msg("failed to parse webhook event")
		s.forgetDelivery(r, deliveryID)
		metrics.IncWebhook("rejected")
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	evt := usecase.ProviderEvent{
		EventType: event.Type,
		PaymentID: event.Data.PaymentID,
		Status:    event.Data.Status,
		Amount:    event.Data.TotalAmount,
		Currency:  event.Data.Currency,
	}
	if err := s.paymentUC.HandleProviderEvent(r.Context(), evt); err != nil {
		// 5xx makes the provider redeliver; reconciliation is idempotent so
		// retrying is always safe. The retry reuses the same delivery id, so
		// the guard must release it or the retry would be acked unprocessed.
		s.forgetDelivery(r, deliveryID)
		s.log.Error().Err(err).Str("event_type", evt.EventType).Str("provider_payment_id", evt.PaymentID).Msg("webhook processing failed")
		metrics.IncWebhook("failed")
		respondError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	metrics.IncWebhook("processed")
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// forgetDelivery releases a delivery id from the replay guard after a
// non-2xx answer so the provider's redelivery is processed instead of acked.
func (s *Server) forgetDelivery(r *http.Request, deliveryID string) {
	if s.replays == nil {
		return
	}
	if err := s.replays.Forget(r.Context(), deliveryID); err != nil {
		s.log.Warn().Err(err).Str("webhook_id", deliveryID).Msg("replay guard release failed")
	}
}

func newWebhookVerifier(secret string) (*svix.Webhook, error) {
	return svix.NewWebhook(secret)
}
