package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "created"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type RefundStatus string

const (
	RefundStatusNone      RefundStatus = "none"
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusProcessed RefundStatus = "processed"
	RefundStatusFailed    RefundStatus = "failed"
)

// WebhookEvent is one entry of the append-only webhook audit log. The
// event ID doubles as the dedup key for at-least-once delivery.
type WebhookEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Timestamp  time.Time       `json:"timestamp"`
	RawPayload json.RawMessage `json:"raw_payload"`
}

// Payment is the financial record for one gateway order attempt. Rows are
// never deleted; re-creating an order for a booking creates a new row and
// leaves the old one in its terminal state.
type Payment struct {
	Base
	BookingID        uuid.UUID      `db:"booking_id"`
	UserID           uuid.UUID      `db:"user_id"`
	Amount           int64          `db:"amount"`
	Currency         string         `db:"currency"`
	GatewayOrderID   string         `db:"gateway_order_id"`
	GatewayPaymentID *string        `db:"gateway_payment_id"`
	GatewaySignature *string        `db:"gateway_signature"`
	Status           PaymentStatus  `db:"status"`
	ErrorCode        *string        `db:"error_code"`
	ErrorDescription *string        `db:"error_description"`
	RefundID         *string        `db:"refund_id"`
	RefundAmount     int64          `db:"refund_amount"`
	RefundStatus     RefundStatus   `db:"refund_status"`
	WebhookEvents    []WebhookEvent `db:"webhook_events"`
}

// HasWebhookEvent reports whether eventID was already recorded.
func (p *Payment) HasWebhookEvent(eventID string) bool {
	for _, ev := range p.WebhookEvents {
		if ev.EventID == eventID {
			return true
		}
	}
	return false
}

// RemainingRefundable is the amount still eligible for refund.
func (p *Payment) RemainingRefundable() int64 {
	remaining := p.Amount - p.RefundAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}
