package usecase

import (
	"context"
	"fmt"
	"time"

	"service-booking/internal/data/entity"
	"service-booking/internal/data/repository"
	"service-booking/internal/dto/request"
	"service-booking/internal/dto/response"
	"service-booking/internal/gateway"
	"service-booking/internal/notify"
	"service-booking/pkg/signature"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCurrency = "INR"

type PaymentService interface {
	// Public endpoints (butuh auth)
	CreateOrder(ctx context.Context, userID string, req *request.CreatePaymentOrderRequest) (*response.PaymentOrderResponse, error)
	VerifyPayment(ctx context.Context, userID string, req *request.VerifyPaymentRequest) (*response.PaymentResponse, error)
	GetPayment(ctx context.Context, userID, role, paymentID string) (*response.PaymentResponse, error)

	// Internal entry points shared with the webhook path
	MarkCaptured(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string) (*entity.Payment, error)
	RecordFailure(ctx context.Context, gatewayOrderID, errorCode, errorDescription string) error
}

type paymentService struct {
	repo      *repository.Repository
	gateway   gateway.Client
	cache     BookingCache
	notifier  notify.Notifier
	keyID     string
	keySecret string
	log       *zap.Logger
}

func NewPaymentService(repo *repository.Repository, gw gateway.Client, cache BookingCache, notifier notify.Notifier, cfg utils.GatewayConfig, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:      repo,
		gateway:   gw,
		cache:     cache,
		notifier:  notifier,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		log:       log.With(zap.String("service", "payment")),
	}
}

// CreateOrder registers an order with the gateway and records the payment
// row only after the gateway accepted it. A gateway failure leaves no
// local state behind.
func (s *paymentService) CreateOrder(ctx context.Context, userID string, req *request.CreatePaymentOrderRequest) (*response.PaymentOrderResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	customerID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %s", ErrValidation, userID)
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID format %s", ErrValidation, req.BookingID)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, req.BookingID)
	}

	if booking.CustomerID != customerID {
		return nil, fmt.Errorf("%w: booking belongs to someone else", ErrForbidden)
	}
	if booking.PaymentMethod != entity.PaymentModeGateway {
		return nil, fmt.Errorf("%w: booking %s is not a gateway booking", ErrValidation, req.BookingID)
	}
	if booking.PaymentStatus != entity.BookingPaymentUnpaid {
		return nil, fmt.Errorf("%w: booking %s is already %s", ErrConflict, req.BookingID, booking.PaymentStatus)
	}
	if booking.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: booking %s is %s", ErrInvalidTransition, req.BookingID, booking.Status)
	}

	receipt := utils.GenerateReceiptID()
	order, err := s.gateway.CreateOrder(ctx, booking.TotalAmount, defaultCurrency, receipt, map[string]string{
		"booking_id": bookingID.String(),
	})
	if err != nil {
		s.log.Error("Gateway order creation failed",
			zap.Error(err),
			zap.String("booking_id", req.BookingID),
		)
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	now := time.Now()
	payment := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:      bookingID,
		UserID:         customerID,
		Amount:         booking.TotalAmount,
		Currency:       defaultCurrency,
		GatewayOrderID: order.ID,
		Status:         entity.PaymentStatusCreated,
		RefundStatus:   entity.RefundStatusNone,
		WebhookEvents:  []entity.WebhookEvent{},
	}

	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment record: %w", err)
	}

	s.log.Info("Payment order created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", req.BookingID),
		zap.String("gateway_order_id", order.ID),
		zap.Int64("amount", payment.Amount),
	)

	return &response.PaymentOrderResponse{
		PaymentID:      payment.ID.String(),
		BookingID:      bookingID.String(),
		GatewayOrderID: order.ID,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		GatewayKeyID:   s.keyID,
	}, nil
}

// VerifyPayment checks the checkout callback proof and captures the
// payment. A bad signature only rejects the request; it must not touch the
// payment row, since anyone who knows the order ID could otherwise spam the
// endpoint and race the real settlement.
func (s *paymentService) VerifyPayment(ctx context.Context, userID string, req *request.VerifyPaymentRequest) (*response.PaymentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	customerID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %s", ErrValidation, userID)
	}

	payment, err := s.repo.Payment.FindByGatewayOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment for order %s", ErrNotFound, req.GatewayOrderID)
	}
	if payment.UserID != customerID {
		return nil, fmt.Errorf("%w: payment belongs to someone else", ErrForbidden)
	}

	if !signature.VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature, s.keySecret) {
		s.log.Warn("Payment signature mismatch",
			zap.String("gateway_order_id", req.GatewayOrderID),
			zap.String("gateway_payment_id", req.GatewayPaymentID),
		)
		return nil, fmt.Errorf("%w: order %s", ErrSignatureInvalid, req.GatewayOrderID)
	}

	captured, err := s.MarkCaptured(ctx, req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature)
	if err != nil {
		return nil, err
	}

	resp := response.PaymentToResponse(captured)
	return &resp, nil
}

func (s *paymentService) GetPayment(ctx context.Context, userID, role, paymentID string) (*response.PaymentResponse, error) {
	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payment ID format %s", ErrValidation, paymentID)
	}

	requesterID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %s", ErrValidation, userID)
	}

	payment, err := s.repo.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
	}

	if entity.UserRole(role) != entity.RoleAdmin && payment.UserID != requesterID {
		return nil, fmt.Errorf("%w: payment belongs to someone else", ErrForbidden)
	}

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

// MarkCaptured is the single capture path for both the verify endpoint
// and the webhook. The conditional update makes the two race-safe; a
// zero-row result is disambiguated by re-reading the row.
func (s *paymentService) MarkCaptured(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string) (*entity.Payment, error) {
	ok, err := s.repo.Payment.MarkCaptured(ctx, gatewayOrderID, gatewayPaymentID, gatewaySignature)
	if err != nil {
		return nil, fmt.Errorf("mark captured: %w", err)
	}

	payment, err := s.repo.Payment.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("reload payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment for order %s", ErrNotFound, gatewayOrderID)
	}

	if !ok {
		// Zero rows means the payment is already captured or refunded.
		if payment.Status == entity.PaymentStatusCaptured &&
			payment.GatewayPaymentID != nil && *payment.GatewayPaymentID == gatewayPaymentID {
			// Same payment landed twice: idempotent no-op.
			return payment, nil
		}
		return nil, fmt.Errorf("%w: payment for order %s is %s", ErrConflict, gatewayOrderID, payment.Status)
	}

	if err := s.repo.Booking.UpdatePaymentStatus(ctx, payment.BookingID, entity.BookingPaymentPaid); err != nil {
		s.log.Error("Failed to mark booking paid",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
		)
	}
	s.cache.Invalidate(ctx, payment.BookingID)

	s.log.Info("Payment captured",
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway_order_id", gatewayOrderID),
		zap.String("gateway_payment_id", gatewayPaymentID),
		zap.Int64("amount", payment.Amount),
	)

	s.notifier.Notify(ctx, notify.Event{
		Type:      "payment.captured",
		BookingID: payment.BookingID,
		UserID:    payment.UserID,
		Status:    string(entity.PaymentStatusCaptured),
	})

	return payment, nil
}

func (s *paymentService) RecordFailure(ctx context.Context, gatewayOrderID, errorCode, errorDescription string) error {
	ok, err := s.repo.Payment.MarkFailed(ctx, gatewayOrderID, errorCode, errorDescription)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if !ok {
		// Already terminal; failures after capture are ignored.
		s.log.Info("Ignoring failure for settled payment",
			zap.String("gateway_order_id", gatewayOrderID),
			zap.String("error_code", errorCode),
		)
		return nil
	}

	s.log.Info("Payment failed",
		zap.String("gateway_order_id", gatewayOrderID),
		zap.String("error_code", errorCode),
		zap.String("error_description", errorDescription),
	)
	return nil
}
