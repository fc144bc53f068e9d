package wire

import (
	"service-booking/internal/adaptor"
	"service-booking/internal/data/repository"
	"service-booking/pkg/middleware"
	"service-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	webhookHandler *adaptor.WebhookHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// POST /api/payments/webhook - gateway deliveries, authenticated by
	// signature, never by session
	r.Post("/api/payments/webhook", webhookHandler.HandleWebhook)

	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		// POST /api/payments/order - Register a gateway order for a booking
		r.Post("/api/payments/order", paymentHandler.CreateOrder)

		// POST /api/payments/verify - Verify checkout callback proof
		r.Post("/api/payments/verify", paymentHandler.VerifyPayment)

		// GET /api/payments/{id} - Payment details
		r.Get("/api/payments/{id}", paymentHandler.GetPayment)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/payments/{id}/refund", func(r chi.Router) {
		// Require both authentication AND admin role
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.Admin(repo.User, log))

		// POST /api/payments/{id}/refund - Initiate a refund (admin)
		r.Post("/", paymentHandler.Refund)
	})
}
