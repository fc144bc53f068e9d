package request

type CreatePaymentOrderRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
}

// VerifyPaymentRequest carries the checkout callback proof. The signature
// is HMAC over "{order_id}|{payment_id}".
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	GatewaySignature string `json:"gateway_signature" validate:"required"`
}

type RefundRequest struct {
	// Amount in minor units. Zero means refund the remaining balance.
	Amount int64  `json:"amount,omitempty" validate:"min=0"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}
