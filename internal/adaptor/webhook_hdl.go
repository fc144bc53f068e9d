package adaptor

import (
	"errors"
	"io"
	"net/http"

	"service-booking/internal/usecase"
	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

// signatureHeader is the header the gateway signs webhook bodies with.
const signatureHeader = "X-Gateway-Signature"

// maxWebhookBody caps webhook payload size at 1 MiB.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// HandleWebhook handles POST /api/payments/webhook (public, gateway-authenticated).
// The body must be read raw before any parsing: the signature covers the
// bytes on the wire.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get(signatureHeader)
	if sig == "" {
		utils.ResponseBadRequest(w, "Missing signature header", nil)
		return
	}

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.Error("Failed to read webhook body", zap.Error(err))
		utils.ResponseBadRequest(w, "Unreadable request body", nil)
		return
	}

	if err := h.service.Handle(r.Context(), rawBody, sig); err != nil {
		if errors.Is(err, usecase.ErrSignatureInvalid) {
			utils.ResponseUnauthorized(w, "Invalid webhook signature")
			return
		}
		// Authenticated deliveries always ack: the gateway retries on
		// non-2xx, and a retry will not fix a processing problem on our
		// side. The event log has the details.
		h.log.Error("Webhook processing error", zap.Error(err))
	}

	utils.ResponseSuccess(w, "ok", nil)
}
