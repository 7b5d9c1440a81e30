package model

import (
	"time"

	"github.com/google/uuid"
)

// Security event types recorded by the reconciliation flow.
const (
	SecurityEventPaymentCompleted = "payment_completed"
	SecurityEventStatusMismatch   = "payment_status_mismatch"
	SecurityEventAmountMismatch   = "payment_amount_mismatch"
	SecurityEventOwnershipDenied  = "payment_ownership_denied"
	SecurityEventWebhookRejected  = "webhook_rejected"
	SecurityEventAdminAdjustment  = "admin_credit_adjustment"
)

// SecurityEvent is a write-once audit/fraud-signal record.
type SecurityEvent struct {
	ID        string
	UserID    *string // nil for events not tied to a known user
	EventType string
	Metadata  map[string]interface{} // free-form, serialized as JSONB
	CreatedAt time.Time
}

func NewSecurityEvent(userID, eventType string, metadata map[string]interface{}) *SecurityEvent {
	e := &SecurityEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if userID != "" {
		e.UserID = &userID
	}
	return e
}
