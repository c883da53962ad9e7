package billing

import (
	"strings"
	"testing"

	"github.com/razorpay/razorpay-go/utils"
	"github.com/stretchr/testify/assert"
)

func TestSignIsDeterministic(t *testing.T) {
	a := Sign("secret", []byte("order_1|pay_1"))
	b := Sign("secret", []byte("order_1|pay_1"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Sign("other", []byte("order_1|pay_1")))
}

func TestVerify(t *testing.T) {
	msg := []byte("order_1|pay_1")
	sig := Sign("secret", msg)

	assert.True(t, Verify("secret", msg, sig))
	assert.True(t, Verify("secret", msg, strings.ToUpper(sig)), "hex case must not matter")
	assert.False(t, Verify("secret", []byte("order_1|pay_2"), sig))
	assert.False(t, Verify("wrong", msg, sig))
	assert.False(t, Verify("secret", msg, ""))
	assert.False(t, Verify("", msg, Sign("", msg)), "empty secret never verifies")
	assert.False(t, Verify("secret", msg, "zz"+sig[2:]), "non-hex signature")
	assert.False(t, Verify("secret", msg, sig[:62]), "truncated signature")
}

func TestVerifyRejectsSingleBitFlips(t *testing.T) {
	msg := []byte("order_1|pay_1")
	sig := []byte(Sign("secret", msg))
	for i := range sig {
		flipped := make([]byte, len(sig))
		copy(flipped, sig)
		if flipped[i] == '0' {
			flipped[i] = '1'
		} else {
			flipped[i] = '0'
		}
		assert.False(t, Verify("secret", msg, string(flipped)), "position %d", i)
	}
}

func TestVerifyPaymentMatchesGatewaySDK(t *testing.T) {
	sig := Sign(testKeySecret, PaymentMessage("order_A", "pay_A"))
	assert.True(t, VerifyPayment(testKeySecret, "order_A", "pay_A", sig))

	params := map[string]interface{}{
		"razorpay_order_id":   "order_A",
		"razorpay_payment_id": "pay_A",
		"razorpay_signature":  sig,
	}
	assert.True(t, utils.VerifyPaymentSignature(params, testKeySecret))
}

func TestVerifyWebhookMatchesGatewaySDK(t *testing.T) {
	body := webhookBody(EventPaymentCaptured, "order_A", "pay_A")
	sig := Sign(testWebhookSecret, body)

	assert.True(t, VerifyWebhook(testWebhookSecret, body, sig))
	assert.True(t, utils.VerifyWebhookSignature(string(body), sig, testWebhookSecret))

	// Any change to the raw body, even whitespace, invalidates the signature.
	assert.False(t, VerifyWebhook(testWebhookSecret, append([]byte(" "), body...), sig))
}
