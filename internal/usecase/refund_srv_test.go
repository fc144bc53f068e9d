package usecase_test

import (
	"context"
	"errors"
	"testing"

	"service-booking/internal/data/entity"
	"service-booking/internal/dto/request"
	"service-booking/internal/gateway"
	"service-booking/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRefundService(bookingRepo *MockBookingRepo, paymentRepo *MockPaymentRepo, gw *MockGateway) usecase.RefundService {
	repo := newTestRepository(bookingRepo, paymentRepo, nil, nil)
	return usecase.NewRefundService(repo, gw, noopCache{}, noopNotifier, zap.NewNop())
}

func capturedPaymentFixture() *entity.Payment {
	gatewayPaymentID := "pay_test_789"
	payment := newPaymentFixture(entity.PaymentStatusCaptured)
	payment.GatewayPaymentID = &gatewayPaymentID
	return payment
}

func TestRefund_AdminOnly(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	gw := &MockGateway{}
	svc := newRefundService(&MockBookingRepo{}, paymentRepo, gw)

	payment := capturedPaymentFixture()

	_, err := svc.Initiate(context.Background(), "customer", payment.ID.String(), &request.RefundRequest{})

	assert.ErrorIs(t, err, usecase.ErrForbidden)
	paymentRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefund_DefaultsToRemainingBalance(t *testing.T) {
	bookingRepo := &MockBookingRepo{}
	paymentRepo := &MockPaymentRepo{}
	gw := &MockGateway{}
	svc := newRefundService(bookingRepo, paymentRepo, gw)

	payment := capturedPaymentFixture()
	payment.RefundAmount = 10000 // 10000 of 50000 already refunded

	afterApply := capturedPaymentFixture()
	afterApply.Base.ID = payment.ID
	afterApply.Status = entity.PaymentStatusRefunded
	afterApply.RefundAmount = 50000

	paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()
	gw.On("CreateRefund", mock.Anything, "pay_test_789", int64(40000), mock.Anything).
		Return(&gateway.Refund{ID: "rfnd_1", PaymentID: "pay_test_789", Amount: 40000, Status: "created"}, nil)
	paymentRepo.On("ApplyRefund", mock.Anything, payment.ID, "rfnd_1", int64(40000), entity.RefundStatusPending).Return(true, nil)
	paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(afterApply, nil).Once()
	bookingRepo.On("UpdatePaymentStatus", mock.Anything, payment.BookingID, entity.BookingPaymentRefunded).Return(nil)

	resp, err := svc.Initiate(context.Background(), "admin", payment.ID.String(), &request.RefundRequest{Reason: "service issue"})

	require.NoError(t, err)
	assert.Equal(t, int64(40000), resp.Amount)
	assert.Equal(t, "rfnd_1", resp.RefundID)
	assert.Equal(t, entity.RefundStatusPending, resp.RefundStatus)

	gw.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
	bookingRepo.AssertExpectations(t)
}

func TestRefund_PartialLeavesBookingPaid(t *testing.T) {
	bookingRepo := &MockBookingRepo{}
	paymentRepo := &MockPaymentRepo{}
	gw := &MockGateway{}
	svc := newRefundService(bookingRepo, paymentRepo, gw)

	payment := capturedPaymentFixture()

	afterApply := capturedPaymentFixture()
	afterApply.Base.ID = payment.ID
	afterApply.RefundAmount = 15000
	afterApply.RefundStatus = entity.RefundStatusPending

	paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil).Once()
	gw.On("CreateRefund", mock.Anything, "pay_test_789", int64(15000), mock.Anything).
		Return(&gateway.Refund{ID: "rfnd_2", PaymentID: "pay_test_789", Amount: 15000, Status: "created"}, nil)
	paymentRepo.On("ApplyRefund", mock.Anything, payment.ID, "rfnd_2", int64(15000), entity.RefundStatusPending).Return(true, nil)
	paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(afterApply, nil).Once()

	resp, err := svc.Initiate(context.Background(), "admin", payment.ID.String(), &request.RefundRequest{Amount: 15000})

	require.NoError(t, err)
	assert.Equal(t, int64(15000), resp.Amount)
	bookingRepo.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefund_NothingLeftToRefund(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	gw := &MockGateway{}
	svc := newRefundService(&MockBookingRepo{}, paymentRepo, gw)

	payment := newPaymentFixture(entity.PaymentStatusRefunded)
	paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

	_, err := svc.Initiate(context.Background(), "admin", payment.ID.String(), &request.RefundRequest{})

	assert.ErrorIs(t, err, usecase.ErrNothingToRefund)
	gw.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefund_AmountAboveRemainingRejected(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	gw := &MockGateway{}
	svc := newRefundService(&MockBookingRepo{}, paymentRepo, gw)

	payment := capturedPaymentFixture()
	payment.RefundAmount = 40000 // only 10000 left

	paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

	_, err := svc.Initiate(context.Background(), "admin", payment.ID.String(), &request.RefundRequest{Amount: 20000})

	assert.ErrorIs(t, err, usecase.ErrValidation)
	gw.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefund_UncapturedPaymentRejected(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	svc := newRefundService(&MockBookingRepo{}, paymentRepo, &MockGateway{})

	payment := newPaymentFixture(entity.PaymentStatusCreated)
	paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

	_, err := svc.Initiate(context.Background(), "admin", payment.ID.String(), &request.RefundRequest{})

	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)
}

func TestRefund_GatewayFailureAppliesNothing(t *testing.T) {
	paymentRepo := &MockPaymentRepo{}
	gw := &MockGateway{}
	svc := newRefundService(&MockBookingRepo{}, paymentRepo, gw)

	payment := capturedPaymentFixture()
	paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
	gw.On("CreateRefund", mock.Anything, "pay_test_789", int64(50000), mock.Anything).
		Return(nil, errors.New("gateway returned status 502"))

	_, err := svc.Initiate(context.Background(), "admin", payment.ID.String(), &request.RefundRequest{})

	assert.ErrorIs(t, err, usecase.ErrGateway)
	paymentRepo.AssertNotCalled(t, "ApplyRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
