package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the hex encoded HMAC-SHA256 of message keyed with secret.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether providedSignature is the HMAC-SHA256 of message under secret.
// Empty secrets and signatures never verify.
func Verify(secret string, message []byte, providedSignature string) bool {
	sig := strings.ToLower(strings.TrimSpace(providedSignature))
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

// PaymentMessage is the canonical string signed by the gateway after checkout.
func PaymentMessage(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}

// VerifyPayment checks a checkout signature over "orderID|paymentID".
func VerifyPayment(keySecret, orderID, paymentID, signature string) bool {
	return Verify(keySecret, PaymentMessage(orderID, paymentID), signature)
}

// VerifyWebhook checks a webhook signature over the exact raw request body.
func VerifyWebhook(webhookSecret string, body []byte, signature string) bool {
	return Verify(webhookSecret, body, signature)
}
