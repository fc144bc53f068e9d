package usecase

import (
	"service-booking/internal/data/repository"
	"service-booking/internal/gateway"
	"service-booking/internal/notify"
	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking BookingService
	Payment PaymentService
	Webhook WebhookService
	Refund  RefundService
}

func NewService(repo *repository.Repository, gw gateway.Client, cache BookingCache, notifier notify.Notifier, config *utils.Config, log *zap.Logger) *Service {
	payment := NewPaymentService(repo, gw, cache, notifier, config.Gateway, log)

	return &Service{
		Booking: NewBookingService(repo, cache, notifier, log),
		Payment: payment,
		Webhook: NewWebhookService(repo, payment, config.Gateway.WebhookSecret, log),
		Refund:  NewRefundService(repo, gw, cache, notifier, log),
	}
}
