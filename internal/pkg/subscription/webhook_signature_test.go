package subscription

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"eventType":"checkout.completed"}`)
	secret := "shared-secret"

	sig := ComputeWebhookSignature(payload, secret)
	assert.True(t, VerifyWebhookSignature(payload, sig, secret))

	// Case and surrounding whitespace in the header are tolerated.
	assert.True(t, VerifyWebhookSignature(payload, "  "+strings.ToUpper(sig)+" ", secret))
}

func TestVerifyWebhookSignatureRejects(t *testing.T) {
	payload := []byte(`{"eventType":"checkout.completed"}`)
	secret := "shared-secret"
	sig := ComputeWebhookSignature(payload, secret)

	assert.False(t, VerifyWebhookSignature(payload, sig, "other-secret"))
	assert.False(t, VerifyWebhookSignature([]byte(`{"eventType":"tampered"}`), sig, secret))
	assert.False(t, VerifyWebhookSignature(payload, "", secret))
	assert.False(t, VerifyWebhookSignature(payload, "not-hex", secret))
	assert.False(t, VerifyWebhookSignature(payload, sig, ""))
}
