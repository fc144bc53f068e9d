package usecase

import (
	"context"
	"fmt"

	"service-booking/internal/data/entity"
	"service-booking/internal/data/repository"
	"service-booking/internal/dto/request"
	"service-booking/internal/dto/response"
	"service-booking/internal/gateway"
	"service-booking/internal/notify"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RefundService interface {
	// Admin only
	Initiate(ctx context.Context, role, paymentID string, req *request.RefundRequest) (*response.RefundResponse, error)
}

type refundService struct {
	repo     *repository.Repository
	gateway  gateway.Client
	cache    BookingCache
	notifier notify.Notifier
	log      *zap.Logger
}

func NewRefundService(repo *repository.Repository, gw gateway.Client, cache BookingCache, notifier notify.Notifier, log *zap.Logger) RefundService {
	return &refundService{
		repo:     repo,
		gateway:  gw,
		cache:    cache,
		notifier: notifier,
		log:      log.With(zap.String("service", "refund")),
	}
}

// Initiate asks the gateway for a refund and applies it locally as
// pending. The webhook moves it to processed or failed later. The amount
// defaults to whatever is still refundable.
func (s *refundService) Initiate(ctx context.Context, role, paymentID string, req *request.RefundRequest) (*response.RefundResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	if entity.UserRole(role) != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins can initiate refunds", ErrForbidden)
	}

	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payment ID format %s", ErrValidation, paymentID)
	}

	payment, err := s.repo.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
	}

	if payment.Status != entity.PaymentStatusCaptured {
		if payment.Status == entity.PaymentStatusRefunded {
			return nil, fmt.Errorf("%w: payment %s is fully refunded", ErrNothingToRefund, paymentID)
		}
		return nil, fmt.Errorf("%w: payment %s is %s, only captured payments can be refunded", ErrInvalidTransition, paymentID, payment.Status)
	}
	if payment.GatewayPaymentID == nil || *payment.GatewayPaymentID == "" {
		return nil, fmt.Errorf("%w: payment %s has no gateway payment reference", ErrInvalidTransition, paymentID)
	}

	remaining := payment.RemainingRefundable()
	if remaining == 0 {
		return nil, fmt.Errorf("%w: payment %s", ErrNothingToRefund, paymentID)
	}

	amount := req.Amount
	if amount == 0 {
		amount = remaining
	}
	if amount > remaining {
		return nil, fmt.Errorf("%w: refund %d exceeds refundable %d", ErrValidation, amount, remaining)
	}

	notes := map[string]string{"booking_id": payment.BookingID.String()}
	if req.Reason != "" {
		notes["reason"] = req.Reason
	}

	refund, err := s.gateway.CreateRefund(ctx, *payment.GatewayPaymentID, amount, notes)
	if err != nil {
		s.log.Error("Gateway refund failed",
			zap.Error(err),
			zap.String("payment_id", paymentID),
			zap.Int64("amount", amount),
		)
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	ok, err := s.repo.Payment.ApplyRefund(ctx, payment.ID, refund.ID, amount, entity.RefundStatusPending)
	if err != nil {
		return nil, fmt.Errorf("apply refund: %w", err)
	}
	if !ok {
		// A concurrent refund drained the balance between our read and the
		// write. The gateway refund still exists; the webhook will surface
		// it and the audit trail will show the overdraw attempt.
		s.log.Error("Refund applied at gateway but rejected locally",
			zap.String("payment_id", paymentID),
			zap.String("refund_id", refund.ID),
			zap.Int64("amount", amount),
		)
		return nil, fmt.Errorf("%w: refundable balance changed for payment %s", ErrConflict, paymentID)
	}

	// Flip the booking when the payment is now fully refunded.
	updated, err := s.repo.Payment.FindByID(ctx, payment.ID)
	if err == nil && updated != nil && updated.Status == entity.PaymentStatusRefunded {
		if err := s.repo.Booking.UpdatePaymentStatus(ctx, payment.BookingID, entity.BookingPaymentRefunded); err != nil {
			s.log.Error("Failed to mark booking refunded",
				zap.Error(err),
				zap.String("booking_id", payment.BookingID.String()),
			)
		}
		s.cache.Invalidate(ctx, payment.BookingID)
	}

	s.log.Info("Refund initiated",
		zap.String("payment_id", paymentID),
		zap.String("refund_id", refund.ID),
		zap.Int64("amount", amount),
	)

	s.notifier.Notify(ctx, notify.Event{
		Type:      "payment.refund_initiated",
		BookingID: payment.BookingID,
		UserID:    payment.UserID,
		Status:    string(entity.RefundStatusPending),
	})

	return &response.RefundResponse{
		PaymentID:    paymentID,
		RefundID:     refund.ID,
		Amount:       amount,
		RefundStatus: entity.RefundStatusPending,
	}, nil
}
