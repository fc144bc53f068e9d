package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// PaymentSignature computes the hex HMAC-SHA256 the gateway hands to the
// client after checkout: the signed message is "{orderID}|{paymentID}".
func PaymentSignature(orderID, paymentID, secret string) string {
	message := fmt.Sprintf("%s|%s", orderID, paymentID)
	return sign([]byte(message), secret)
}

// VerifyPaymentSignature checks a client-reported payment proof using a
// constant-time comparison.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	expected := PaymentSignature(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookSignature computes the hex HMAC-SHA256 over the exact raw body
// bytes. Gateways sign the bytes they send, so callers must pass the body
// as received, never a re-serialization of parsed JSON.
func WebhookSignature(body []byte, secret string) string {
	return sign(body, secret)
}

// VerifyWebhookSignature checks the webhook signature header against the
// raw request body using a constant-time comparison.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	expected := WebhookSignature(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func sign(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
