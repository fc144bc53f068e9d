package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentSignatureRoundTrip(t *testing.T) {
	secret := "test_key_secret"
	sig := PaymentSignature("order_abc123", "pay_xyz789", secret)

	assert.NotEmpty(t, sig)
	assert.True(t, VerifyPaymentSignature("order_abc123", "pay_xyz789", sig, secret))
}

func TestVerifyPaymentSignatureRejectsTampering(t *testing.T) {
	secret := "test_key_secret"
	sig := PaymentSignature("order_abc123", "pay_xyz789", secret)

	// Different payment ID
	assert.False(t, VerifyPaymentSignature("order_abc123", "pay_other", sig, secret))
	// Different order ID
	assert.False(t, VerifyPaymentSignature("order_other", "pay_xyz789", sig, secret))
	// Different secret
	assert.False(t, VerifyPaymentSignature("order_abc123", "pay_xyz789", sig, "wrong_secret"))
}

func TestVerifyPaymentSignatureRejectsFlippedByte(t *testing.T) {
	secret := "test_key_secret"
	sig := PaymentSignature("order_abc123", "pay_xyz789", secret)

	tampered := []byte(sig)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	assert.False(t, VerifyPaymentSignature("order_abc123", "pay_xyz789", string(tampered), secret))
}

func TestWebhookSignatureCoversRawBytes(t *testing.T) {
	secret := "webhook_secret"
	body := []byte(`{"id":"evt_1","event":"payment.captured"}`)

	sig := WebhookSignature(body, secret)
	assert.True(t, VerifyWebhookSignature(body, sig, secret))

	// Semantically identical JSON with different whitespace must fail:
	// the HMAC is over bytes, not meaning.
	reserialized := []byte(`{"id": "evt_1", "event": "payment.captured"}`)
	assert.False(t, VerifyWebhookSignature(reserialized, sig, secret))
}

func TestVerifyWebhookSignatureRejectsEmptySignature(t *testing.T) {
	assert.False(t, VerifyWebhookSignature([]byte(`{}`), "", "webhook_secret"))
}
