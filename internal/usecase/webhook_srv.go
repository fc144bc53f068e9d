package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"service-booking/internal/data/entity"
	"service-booking/internal/data/repository"
	"service-booking/pkg/signature"

	"go.uber.org/zap"
)

// WebhookService consumes gateway webhook deliveries. Deliveries are
// at-least-once and unordered, so everything here must be idempotent.
type WebhookService interface {
	Handle(ctx context.Context, rawBody []byte, signatureHeader string) error
}

type webhookService struct {
	repo          *repository.Repository
	payments      PaymentService
	webhookSecret string
	log           *zap.Logger
}

func NewWebhookService(repo *repository.Repository, payments PaymentService, webhookSecret string, log *zap.Logger) WebhookService {
	return &webhookService{
		repo:          repo,
		payments:      payments,
		webhookSecret: webhookSecret,
		log:           log.With(zap.String("service", "webhook")),
	}
}

// webhookEnvelope mirrors the gateway's event shape. Only the fields the
// dispatch below reads are declared.
type webhookEnvelope struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Amount           int64  `json:"amount"`
				ErrorCode        string `json:"error_code"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
				Status    string `json:"status"`
			} `json:"entity"`
		} `json:"refund"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// Handle authenticates and processes one delivery. Only a bad signature
// comes back as an error; once the delivery is authenticated, failures
// are logged and swallowed so the gateway does not retry forever over a
// problem a retry cannot fix.
func (s *webhookService) Handle(ctx context.Context, rawBody []byte, signatureHeader string) error {
	// The signature covers the exact bytes received.
	if !signature.VerifyWebhookSignature(rawBody, signatureHeader, s.webhookSecret) {
		s.log.Warn("Webhook signature mismatch", zap.Int("body_bytes", len(rawBody)))
		return fmt.Errorf("%w: webhook body", ErrSignatureInvalid)
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		s.log.Error("Webhook body is not valid JSON", zap.Error(err))
		return nil
	}
	if envelope.ID == "" || envelope.Event == "" {
		s.log.Error("Webhook envelope missing id or event",
			zap.String("event_id", envelope.ID),
			zap.String("event_type", envelope.Event),
		)
		return nil
	}

	orderID := envelope.Payload.Payment.Entity.OrderID
	if orderID == "" {
		orderID = envelope.Payload.Order.Entity.ID
	}
	if orderID == "" {
		s.log.Error("Webhook carries no order reference",
			zap.String("event_id", envelope.ID),
			zap.String("event_type", envelope.Event),
		)
		return nil
	}

	payment, err := s.repo.Payment.FindByGatewayOrderID(ctx, orderID)
	if err != nil {
		s.log.Error("Failed to load payment for webhook",
			zap.Error(err),
			zap.String("event_id", envelope.ID),
			zap.String("gateway_order_id", orderID),
		)
		return nil
	}
	if payment == nil {
		s.log.Warn("Webhook for unknown order",
			zap.String("event_id", envelope.ID),
			zap.String("gateway_order_id", orderID),
		)
		return nil
	}

	// Dedup on event ID: the audit log doubles as the seen-set.
	if payment.HasWebhookEvent(envelope.ID) {
		s.log.Info("Webhook already processed",
			zap.String("event_id", envelope.ID),
			zap.String("gateway_order_id", orderID),
		)
		return nil
	}

	s.dispatch(ctx, payment, &envelope)

	// Record the delivery regardless of dispatch outcome.
	event := entity.WebhookEvent{
		EventID:    envelope.ID,
		EventType:  envelope.Event,
		Timestamp:  time.Unix(envelope.CreatedAt, 0),
		RawPayload: json.RawMessage(rawBody),
	}
	if envelope.CreatedAt == 0 {
		event.Timestamp = time.Now()
	}
	if err := s.repo.Payment.AppendWebhookEvent(ctx, payment.ID, event); err != nil {
		s.log.Error("Failed to record webhook event",
			zap.Error(err),
			zap.String("event_id", envelope.ID),
			zap.String("payment_id", payment.ID.String()),
		)
	}

	return nil
}

func (s *webhookService) dispatch(ctx context.Context, payment *entity.Payment, envelope *webhookEnvelope) {
	log := s.log.With(
		zap.String("event_id", envelope.ID),
		zap.String("event_type", envelope.Event),
		zap.String("payment_id", payment.ID.String()),
	)

	switch envelope.Event {
	case "payment.authorized":
		if _, err := s.repo.Payment.MarkAuthorized(ctx, payment.GatewayOrderID); err != nil {
			log.Error("Failed to mark payment authorized", zap.Error(err))
		}

	case "payment.captured":
		if _, err := s.payments.MarkCaptured(ctx, payment.GatewayOrderID, envelope.Payload.Payment.Entity.ID, ""); err != nil {
			log.Error("Failed to capture payment from webhook", zap.Error(err))
		}

	case "payment.failed":
		err := s.payments.RecordFailure(ctx, payment.GatewayOrderID,
			envelope.Payload.Payment.Entity.ErrorCode,
			envelope.Payload.Payment.Entity.ErrorDescription)
		if err != nil {
			log.Error("Failed to record payment failure", zap.Error(err))
		}

	case "refund.created":
		s.applyRefundEvent(ctx, payment, envelope, entity.RefundStatusPending, log)

	case "refund.processed":
		s.applyRefundEvent(ctx, payment, envelope, entity.RefundStatusProcessed, log)

	case "refund.failed":
		refundID := envelope.Payload.Refund.Entity.ID
		if payment.RefundID == nil || *payment.RefundID != refundID {
			// Only the refund tracked on the row may flip its status;
			// failures for refunds this row never saw are audit-only.
			log.Warn("Refund failure for untracked refund", zap.String("refund_id", refundID))
			return
		}
		if err := s.repo.Payment.UpdateRefundStatus(ctx, payment.ID, refundID, entity.RefundStatusFailed); err != nil {
			log.Error("Failed to record refund failure", zap.Error(err))
		}

	default:
		log.Warn("Unhandled webhook event type")
	}
}

// applyRefundEvent distinguishes refunds this service initiated (refund ID
// already on the row, amount already applied) from refunds initiated at
// the gateway (dashboard refunds), which still need their amount applied.
func (s *webhookService) applyRefundEvent(ctx context.Context, payment *entity.Payment, envelope *webhookEnvelope, status entity.RefundStatus, log *zap.Logger) {
	refundID := envelope.Payload.Refund.Entity.ID
	amount := envelope.Payload.Refund.Entity.Amount

	if payment.RefundID != nil && *payment.RefundID == refundID {
		if err := s.repo.Payment.UpdateRefundStatus(ctx, payment.ID, refundID, status); err != nil {
			log.Error("Failed to update refund status", zap.Error(err))
		}
		return
	}

	ok, err := s.repo.Payment.ApplyRefund(ctx, payment.ID, refundID, amount, status)
	if err != nil {
		log.Error("Failed to apply refund from webhook", zap.Error(err))
		return
	}
	if !ok {
		log.Warn("Refund webhook exceeds refundable amount or payment not captured",
			zap.String("refund_id", refundID),
			zap.Int64("amount", amount),
		)
	}
}
