package usecase_test

import (
	"context"

	"service-booking/internal/data/entity"
	"service-booking/internal/data/repository"
	"service-booking/internal/gateway"
	"service-booking/internal/notify"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockBookingRepo is a mock implementation of repository.BookingRepository
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Booking), args.Error(1)
}

func (m *MockBookingRepo) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Booking), args.Error(1)
}

func (m *MockBookingRepo) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepo) UpdateStatusTracking(ctx context.Context, id uuid.UUID, expectedVersion int64, status entity.BookingStatus, update entity.TrackingUpdate, resched *entity.Reschedule) (bool, error) {
	args := m.Called(ctx, id, expectedVersion, status, update, resched)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) SetRating(ctx context.Context, id uuid.UUID, rating entity.Rating) (bool, error) {
	args := m.Called(ctx, id, rating)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.BookingPaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockBookingRepo) ProfessionalRatingAverage(ctx context.Context, professionalID uuid.UUID) (float64, int64, error) {
	args := m.Called(ctx, professionalID)
	return args.Get(0).(float64), args.Get(1).(int64), args.Error(2)
}

// MockPaymentRepo is a mock implementation of repository.PaymentRepository
type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepo) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entity.Payment, error) {
	args := m.Called(ctx, gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepo) MarkCaptured(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string) (bool, error) {
	args := m.Called(ctx, gatewayOrderID, gatewayPaymentID, gatewaySignature)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) MarkAuthorized(ctx context.Context, gatewayOrderID string) (bool, error) {
	args := m.Called(ctx, gatewayOrderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) MarkFailed(ctx context.Context, gatewayOrderID, errorCode, errorDescription string) (bool, error) {
	args := m.Called(ctx, gatewayOrderID, errorCode, errorDescription)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) ApplyRefund(ctx context.Context, id uuid.UUID, refundID string, amount int64, status entity.RefundStatus) (bool, error) {
	args := m.Called(ctx, id, refundID, amount, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) UpdateRefundStatus(ctx context.Context, id uuid.UUID, refundID string, status entity.RefundStatus) error {
	args := m.Called(ctx, id, refundID, status)
	return args.Error(0)
}

func (m *MockPaymentRepo) AppendWebhookEvent(ctx context.Context, id uuid.UUID, event entity.WebhookEvent) error {
	args := m.Called(ctx, id, event)
	return args.Error(0)
}

// MockUserRepo is a mock implementation of repository.UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	args := m.Called(ctx, id, rating)
	return args.Error(0)
}

// MockServiceRepo is a mock implementation of repository.ServiceRepository
type MockServiceRepo struct {
	mock.Mock
}

func (m *MockServiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOffering, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ServiceOffering), args.Error(1)
}

func (m *MockServiceRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.ServiceOffering, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.ServiceOffering), args.Error(1)
}

// MockGateway is a mock implementation of gateway.Client
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
	args := m.Called(ctx, amount, currency, receipt, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *MockGateway) CreateRefund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*gateway.Refund, error) {
	args := m.Called(ctx, paymentID, amount, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Refund), args.Error(1)
}

// noopCache never hits so services always read the repository.
type noopCache struct{}

func (noopCache) Get(ctx context.Context, id uuid.UUID) (*entity.Booking, error) { return nil, nil }
func (noopCache) Set(ctx context.Context, booking *entity.Booking)               {}
func (noopCache) Invalidate(ctx context.Context, id uuid.UUID)                   {}

func newTestRepository(booking *MockBookingRepo, payment *MockPaymentRepo, user *MockUserRepo, service *MockServiceRepo) *repository.Repository {
	repo := &repository.Repository{}
	if booking != nil {
		repo.Booking = booking
	}
	if payment != nil {
		repo.Payment = payment
	}
	if user != nil {
		repo.User = user
	}
	if service != nil {
		repo.Service = service
	}
	return repo
}

var noopNotifier notify.Notifier = notify.NoopNotifier{}
