package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"service-booking/internal/data/entity"
	"service-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Payment, error)

	// Business queries - all conditional updates, never unconditional writes
	MarkCaptured(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string) (bool, error)
	MarkAuthorized(ctx context.Context, gatewayOrderID string) (bool, error)
	MarkFailed(ctx context.Context, gatewayOrderID, errorCode, errorDescription string) (bool, error)
	ApplyRefund(ctx context.Context, id uuid.UUID, refundID string, amount int64, status entity.RefundStatus) (bool, error)
	UpdateRefundStatus(ctx context.Context, id uuid.UUID, refundID string, status entity.RefundStatus) error
	AppendWebhookEvent(ctx context.Context, id uuid.UUID, event entity.WebhookEvent) error
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, user_id, amount, currency, gateway_order_id,
	gateway_payment_id, gateway_signature, status, error_code, error_description,
	refund_id, refund_amount, refund_status, webhook_events, created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	events, err := json.Marshal(payment.WebhookEvents)
	if err != nil {
		return fmt.Errorf("marshal webhook events: %w", err)
	}

	query := `
		INSERT INTO payments (id, booking_id, user_id, amount, currency, gateway_order_id,
			gateway_payment_id, gateway_signature, status, error_code, error_description,
			refund_id, refund_amount, refund_status, webhook_events, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.db.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.GatewayOrderID,
		payment.GatewayPaymentID,
		payment.GatewaySignature,
		payment.Status,
		payment.ErrorCode,
		payment.ErrorDescription,
		payment.RefundID,
		payment.RefundAmount,
		payment.RefundStatus,
		events,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
			zap.String("gateway_order_id", payment.GatewayOrderID),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, gatewayOrderID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by gateway order ID",
			zap.Error(err),
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return nil, fmt.Errorf("find payment by gateway order ID %s: %w", gatewayOrderID, err)
	}

	return payment, nil
}

// MarkCaptured is the only writer of status=captured. The WHERE clause makes
// the verify path and the webhook path race-safe: whichever lands second
// matches zero rows and the caller decides whether that is an idempotent
// no-op (same gateway payment ID) or a conflict. A failed row still
// captures: webhook deliveries are unordered, so a payment.failed event can
// land before the legitimate capture, and only captured/refunded are final.
func (r *paymentRepository) MarkCaptured(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'captured', gateway_payment_id = $2, gateway_signature = $3,
		    error_code = NULL, error_description = NULL, updated_at = NOW()
		WHERE gateway_order_id = $1 AND status NOT IN ('captured', 'refunded')
	`

	result, err := r.db.Exec(ctx, query, gatewayOrderID, gatewayPaymentID, gatewaySignature)
	if err != nil {
		r.log.Error("Failed to mark payment captured",
			zap.Error(err),
			zap.String("gateway_order_id", gatewayOrderID),
			zap.String("gateway_payment_id", gatewayPaymentID),
		)
		return false, fmt.Errorf("mark payment captured for order %s: %w", gatewayOrderID, err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *paymentRepository) MarkAuthorized(ctx context.Context, gatewayOrderID string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'authorized', updated_at = NOW()
		WHERE gateway_order_id = $1 AND status = 'created'
	`

	result, err := r.db.Exec(ctx, query, gatewayOrderID)
	if err != nil {
		r.log.Error("Failed to mark payment authorized",
			zap.Error(err),
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return false, fmt.Errorf("mark payment authorized for order %s: %w", gatewayOrderID, err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, gatewayOrderID, errorCode, errorDescription string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed', error_code = $2, error_description = $3, updated_at = NOW()
		WHERE gateway_order_id = $1 AND status IN ('created', 'authorized')
	`

	result, err := r.db.Exec(ctx, query, gatewayOrderID, errorCode, errorDescription)
	if err != nil {
		r.log.Error("Failed to mark payment failed",
			zap.Error(err),
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return false, fmt.Errorf("mark payment failed for order %s: %w", gatewayOrderID, err)
	}

	return result.RowsAffected() > 0, nil
}

// ApplyRefund increments the cumulative refund amount under the invariant
// refund_amount <= amount, enforced in the WHERE clause so concurrent
// partial refunds serialize instead of overdrawing. Status flips to
// refunded only when the full amount has been returned.
func (r *paymentRepository) ApplyRefund(ctx context.Context, id uuid.UUID, refundID string, amount int64, status entity.RefundStatus) (bool, error) {
	query := `
		UPDATE payments
		SET refund_id = $2,
		    refund_amount = refund_amount + $3,
		    refund_status = $4,
		    status = CASE WHEN refund_amount + $3 >= amount THEN 'refunded' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'captured' AND refund_amount + $3 <= amount
	`

	result, err := r.db.Exec(ctx, query, id, refundID, amount, status)
	if err != nil {
		r.log.Error("Failed to apply refund",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("refund_id", refundID),
			zap.Int64("amount", amount),
		)
		return false, fmt.Errorf("apply refund %s to payment %s: %w", refundID, id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *paymentRepository) UpdateRefundStatus(ctx context.Context, id uuid.UUID, refundID string, status entity.RefundStatus) error {
	query := `
		UPDATE payments
		SET refund_id = $2, refund_status = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, refundID, status)
	if err != nil {
		r.log.Error("Failed to update refund status",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("refund_id", refundID),
			zap.String("refund_status", string(status)),
		)
		return fmt.Errorf("update refund status for payment %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", id.String())
	}

	return nil
}

// AppendWebhookEvent only ever appends - the audit log is never replaced.
func (r *paymentRepository) AppendWebhookEvent(ctx context.Context, id uuid.UUID, event entity.WebhookEvent) error {
	entry, err := json.Marshal([]entity.WebhookEvent{event})
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	query := `
		UPDATE payments
		SET webhook_events = webhook_events || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, entry)
	if err != nil {
		r.log.Error("Failed to append webhook event",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("event_id", event.EventID),
		)
		return fmt.Errorf("append webhook event %s to payment %s: %w", event.EventID, id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", id.String())
	}

	return nil
}

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var payment entity.Payment
	var events []byte

	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.GatewayOrderID,
		&payment.GatewayPaymentID,
		&payment.GatewaySignature,
		&payment.Status,
		&payment.ErrorCode,
		&payment.ErrorDescription,
		&payment.RefundID,
		&payment.RefundAmount,
		&payment.RefundStatus,
		&events,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(events, &payment.WebhookEvents); err != nil {
		return nil, fmt.Errorf("unmarshal webhook events: %w", err)
	}

	return &payment, nil
}
