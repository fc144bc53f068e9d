package response

import (
	"time"

	"service-booking/internal/data/entity"
)

// PaymentOrderResponse is what the client needs to open checkout: the
// gateway order plus the public key ID.
type PaymentOrderResponse struct {
	PaymentID      string `json:"payment_id"`
	BookingID      string `json:"booking_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	GatewayKeyID   string `json:"gateway_key_id"`
}

type PaymentResponse struct {
	ID               string               `json:"id"`
	BookingID        string               `json:"booking_id"`
	Amount           int64                `json:"amount"`
	Currency         string               `json:"currency"`
	GatewayOrderID   string               `json:"gateway_order_id"`
	GatewayPaymentID *string              `json:"gateway_payment_id,omitempty"`
	Status           entity.PaymentStatus `json:"status"`
	ErrorCode        *string              `json:"error_code,omitempty"`
	ErrorDescription *string              `json:"error_description,omitempty"`
	RefundID         *string              `json:"refund_id,omitempty"`
	RefundAmount     int64                `json:"refund_amount"`
	RefundStatus     entity.RefundStatus  `json:"refund_status"`
	CreatedAt        time.Time            `json:"created_at"`
}

func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               payment.ID.String(),
		BookingID:        payment.BookingID.String(),
		Amount:           payment.Amount,
		Currency:         payment.Currency,
		GatewayOrderID:   payment.GatewayOrderID,
		GatewayPaymentID: payment.GatewayPaymentID,
		Status:           payment.Status,
		ErrorCode:        payment.ErrorCode,
		ErrorDescription: payment.ErrorDescription,
		RefundID:         payment.RefundID,
		RefundAmount:     payment.RefundAmount,
		RefundStatus:     payment.RefundStatus,
		CreatedAt:        payment.CreatedAt,
	}
}

type RefundResponse struct {
	PaymentID    string              `json:"payment_id"`
	RefundID     string              `json:"refund_id"`
	Amount       int64               `json:"amount"`
	RefundStatus entity.RefundStatus `json:"refund_status"`
}
