package usecase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"service-booking/internal/data/entity"
	"service-booking/internal/dto/request"
	"service-booking/internal/dto/response"
	"service-booking/internal/usecase"
	"service-booking/pkg/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const webhookSecret = "webhook_test_secret"

// MockPaymentService is a mock implementation of usecase.PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreateOrder(ctx context.Context, userID string, req *request.CreatePaymentOrderRequest) (*response.PaymentOrderResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PaymentOrderResponse), args.Error(1)
}

func (m *MockPaymentService) VerifyPayment(ctx context.Context, userID string, req *request.VerifyPaymentRequest) (*response.PaymentResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, userID, role, paymentID string) (*response.PaymentResponse, error) {
	args := m.Called(ctx, userID, role, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) MarkCaptured(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string) (*entity.Payment, error) {
	args := m.Called(ctx, gatewayOrderID, gatewayPaymentID, gatewaySignature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentService) RecordFailure(ctx context.Context, gatewayOrderID, errorCode, errorDescription string) error {
	args := m.Called(ctx, gatewayOrderID, errorCode, errorDescription)
	return args.Error(0)
}

func webhookBody(t *testing.T, eventID, eventType, orderID, paymentID string, refund map[string]any) []byte {
	t.Helper()

	payload := map[string]any{
		"payment": map[string]any{
			"entity": map[string]any{
				"id":       paymentID,
				"order_id": orderID,
				"amount":   50000,
			},
		},
	}
	if refund != nil {
		payload["refund"] = map[string]any{"entity": refund}
	}

	body, err := json.Marshal(map[string]any{
		"id":         eventID,
		"event":      eventType,
		"created_at": time.Now().Unix(),
		"payload":    payload,
	})
	require.NoError(t, err)
	return body
}

func newWebhookService(paymentRepo *MockPaymentRepo, payments *MockPaymentService) usecase.WebhookService {
	repo := newTestRepository(&MockBookingRepo{}, paymentRepo, nil, nil)
	return usecase.NewWebhookService(repo, payments, webhookSecret, zap.NewNop())
}

func TestWebhook_InvalidSignatureRejected(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	svc := newWebhookService(paymentRepo, &MockPaymentService{})

	body := webhookBody(t, "evt_1", "payment.captured", "order_test_123", "pay_1", nil)

	err := svc.Handle(context.Background(), body, "not-a-real-signature")

	assert.ErrorIs(t, err, usecase.ErrSignatureInvalid)
	paymentRepo.AssertNotCalled(t, "FindByGatewayOrderID", mock.Anything, mock.Anything)
}

func TestWebhook_TamperedBodyRejected(t *testing.T) {
	svc := newWebhookService(&MockPaymentRepo{}, &MockPaymentService{})

	body := webhookBody(t, "evt_1", "payment.captured", "order_test_123", "pay_1", nil)
	sig := signature.WebhookSignature(body, webhookSecret)

	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] = ' '

	err := svc.Handle(context.Background(), tampered, sig)

	assert.ErrorIs(t, err, usecase.ErrSignatureInvalid)
}

func TestWebhook_CaptureDelegatesToPaymentService(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	payments := &MockPaymentService{}
	svc := newWebhookService(paymentRepo, payments)

	payment := newPaymentFixture(entity.PaymentStatusCreated)
	body := webhookBody(t, "evt_cap_1", "payment.captured", payment.GatewayOrderID, "pay_1", nil)
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, payment.GatewayOrderID).Return(payment, nil)
	payments.On("MarkCaptured", mock.Anything, payment.GatewayOrderID, "pay_1", "").Return(payment, nil)
	paymentRepo.On("AppendWebhookEvent", mock.Anything, payment.ID, mock.MatchedBy(func(ev entity.WebhookEvent) bool {
		return ev.EventID == "evt_cap_1" && ev.EventType == "payment.captured"
	})).Return(nil)

	err := svc.Handle(context.Background(), body, sig)

	require.NoError(t, err)
	payments.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
}

func TestWebhook_ReplayIsDedupedByEventID(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	payments := &MockPaymentService{}
	svc := newWebhookService(paymentRepo, payments)

	payment := newPaymentFixture(entity.PaymentStatusCaptured)
	payment.WebhookEvents = []entity.WebhookEvent{{EventID: "evt_cap_1", EventType: "payment.captured", Timestamp: time.Now()}}

	body := webhookBody(t, "evt_cap_1", "payment.captured", payment.GatewayOrderID, "pay_1", nil)
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, payment.GatewayOrderID).Return(payment, nil)

	err := svc.Handle(context.Background(), body, sig)

	require.NoError(t, err)
	payments.AssertNotCalled(t, "MarkCaptured", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	paymentRepo.AssertNotCalled(t, "AppendWebhookEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_FailureEventRecordsFailure(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	payments := &MockPaymentService{}
	svc := newWebhookService(paymentRepo, payments)

	payment := newPaymentFixture(entity.PaymentStatusCreated)
	body, err := json.Marshal(map[string]any{
		"id":         "evt_fail_1",
		"event":      "payment.failed",
		"created_at": time.Now().Unix(),
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":                "pay_1",
					"order_id":          payment.GatewayOrderID,
					"error_code":        "BAD_CARD",
					"error_description": "card declined",
				},
			},
		},
	})
	require.NoError(t, err)
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, payment.GatewayOrderID).Return(payment, nil)
	payments.On("RecordFailure", mock.Anything, payment.GatewayOrderID, "BAD_CARD", "card declined").Return(nil)
	paymentRepo.On("AppendWebhookEvent", mock.Anything, payment.ID, mock.Anything).Return(nil)

	require.NoError(t, svc.Handle(context.Background(), body, sig))
	payments.AssertExpectations(t)
}

func TestWebhook_UnknownEventTypeStillRecorded(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	payments := &MockPaymentService{}
	svc := newWebhookService(paymentRepo, payments)

	payment := newPaymentFixture(entity.PaymentStatusCaptured)
	body := webhookBody(t, "evt_odd_1", "payment.dispute.created", payment.GatewayOrderID, "pay_1", nil)
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, payment.GatewayOrderID).Return(payment, nil)
	paymentRepo.On("AppendWebhookEvent", mock.Anything, payment.ID, mock.MatchedBy(func(ev entity.WebhookEvent) bool {
		return ev.EventID == "evt_odd_1"
	})).Return(nil)

	require.NoError(t, svc.Handle(context.Background(), body, sig))
	paymentRepo.AssertExpectations(t)
}

func TestWebhook_UnknownOrderAcknowledged(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	svc := newWebhookService(paymentRepo, &MockPaymentService{})

	body := webhookBody(t, "evt_1", "payment.captured", "order_unknown", "pay_1", nil)
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, "order_unknown").Return(nil, nil)

	// Unknown orders are acked, not errored: a retry cannot fix them.
	assert.NoError(t, svc.Handle(context.Background(), body, sig))
	paymentRepo.AssertNotCalled(t, "AppendWebhookEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_RefundProcessedForKnownRefundOnlyUpdatesStatus(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	svc := newWebhookService(paymentRepo, &MockPaymentService{})

	refundID := "rfnd_1"
	payment := newPaymentFixture(entity.PaymentStatusCaptured)
	payment.RefundID = &refundID
	payment.RefundAmount = 50000
	payment.RefundStatus = entity.RefundStatusPending

	body := webhookBody(t, "evt_ref_1", "refund.processed", payment.GatewayOrderID, "pay_1", map[string]any{
		"id":         refundID,
		"payment_id": "pay_1",
		"amount":     50000,
		"status":     "processed",
	})
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, payment.GatewayOrderID).Return(payment, nil)
	paymentRepo.On("UpdateRefundStatus", mock.Anything, payment.ID, refundID, entity.RefundStatusProcessed).Return(nil)
	paymentRepo.On("AppendWebhookEvent", mock.Anything, payment.ID, mock.Anything).Return(nil)

	require.NoError(t, svc.Handle(context.Background(), body, sig))

	// The amount was applied when the refund was initiated; applying it
	// again would double count.
	paymentRepo.AssertNotCalled(t, "ApplyRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	paymentRepo.AssertExpectations(t)
}

func TestWebhook_GatewayInitiatedRefundAppliesAmount(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	svc := newWebhookService(paymentRepo, &MockPaymentService{})

	payment := newPaymentFixture(entity.PaymentStatusCaptured)

	body := webhookBody(t, "evt_ref_2", "refund.created", payment.GatewayOrderID, "pay_1", map[string]any{
		"id":         "rfnd_dashboard",
		"payment_id": "pay_1",
		"amount":     20000,
		"status":     "created",
	})
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, payment.GatewayOrderID).Return(payment, nil)
	paymentRepo.On("ApplyRefund", mock.Anything, payment.ID, "rfnd_dashboard", int64(20000), entity.RefundStatusPending).Return(true, nil)
	paymentRepo.On("AppendWebhookEvent", mock.Anything, payment.ID, mock.Anything).Return(nil)

	require.NoError(t, svc.Handle(context.Background(), body, sig))
	paymentRepo.AssertExpectations(t)
}

func TestWebhook_RefundFailedForUntrackedRefundIsAuditOnly(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	svc := newWebhookService(paymentRepo, &MockPaymentService{})

	knownRefund := "rfnd_1"
	payment := newPaymentFixture(entity.PaymentStatusCaptured)
	payment.RefundID = &knownRefund
	payment.RefundStatus = entity.RefundStatusPending

	body := webhookBody(t, "evt_ref_3", "refund.failed", payment.GatewayOrderID, "pay_1", map[string]any{
		"id":         "rfnd_other",
		"payment_id": "pay_1",
		"amount":     50000,
		"status":     "failed",
	})
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, payment.GatewayOrderID).Return(payment, nil)
	paymentRepo.On("AppendWebhookEvent", mock.Anything, payment.ID, mock.Anything).Return(nil)

	require.NoError(t, svc.Handle(context.Background(), body, sig))

	// A failure for a refund this row never saw must not clobber the
	// tracked refund's id or status.
	paymentRepo.AssertNotCalled(t, "UpdateRefundStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	paymentRepo.AssertExpectations(t)
}

func TestWebhook_RefundFailedForTrackedRefundRecorded(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	svc := newWebhookService(paymentRepo, &MockPaymentService{})

	refundID := "rfnd_1"
	payment := newPaymentFixture(entity.PaymentStatusCaptured)
	payment.RefundID = &refundID
	payment.RefundStatus = entity.RefundStatusPending

	body := webhookBody(t, "evt_ref_4", "refund.failed", payment.GatewayOrderID, "pay_1", map[string]any{
		"id":         refundID,
		"payment_id": "pay_1",
		"amount":     50000,
		"status":     "failed",
	})
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, payment.GatewayOrderID).Return(payment, nil)
	paymentRepo.On("UpdateRefundStatus", mock.Anything, payment.ID, refundID, entity.RefundStatusFailed).Return(nil)
	paymentRepo.On("AppendWebhookEvent", mock.Anything, payment.ID, mock.Anything).Return(nil)

	require.NoError(t, svc.Handle(context.Background(), body, sig))
	paymentRepo.AssertExpectations(t)
}

func TestWebhook_MalformedBodyAcknowledged(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	svc := newWebhookService(paymentRepo, &MockPaymentService{})

	body := []byte("this is not json")
	sig := signature.WebhookSignature(body, webhookSecret)

	assert.NoError(t, svc.Handle(context.Background(), body, sig))
	paymentRepo.AssertNotCalled(t, "FindByGatewayOrderID", mock.Anything, mock.Anything)
}

func TestWebhook_AuditLogAppendedEvenWhenDispatchFails(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	payments := &MockPaymentService{}
	svc := newWebhookService(paymentRepo, payments)

	payment := newPaymentFixture(entity.PaymentStatusCreated)
	body := webhookBody(t, "evt_cap_2", "payment.captured", payment.GatewayOrderID, "pay_1", nil)
	sig := signature.WebhookSignature(body, webhookSecret)

	paymentRepo.On("FindByGatewayOrderID", mock.Anything, payment.GatewayOrderID).Return(payment, nil)
	payments.On("MarkCaptured", mock.Anything, payment.GatewayOrderID, "pay_1", "").
		Return(nil, fmt.Errorf("%w: payment is refunded", usecase.ErrConflict))
	paymentRepo.On("AppendWebhookEvent", mock.Anything, payment.ID, mock.Anything).Return(nil)

	require.NoError(t, svc.Handle(context.Background(), body, sig))
	paymentRepo.AssertExpectations(t)
}
