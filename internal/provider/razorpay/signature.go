package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the hex HMAC-SHA256 over "orderID|paymentID"
// keyed with the API secret. Constant-time compare.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	expected := signHMAC([]byte(orderID+"|"+paymentID), c.KeySecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 over the raw request
// body keyed with the webhook secret. The body must be the exact bytes
// received on the wire.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	expected := signHMAC(body, c.WebhookSecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func signHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayment and SignWebhook generate signatures the way the gateway does;
// used by tests and the sandbox simulator.
func (c *Client) SignPayment(orderID, paymentID string) string {
	return signHMAC([]byte(orderID+"|"+paymentID), c.KeySecret)
}

func (c *Client) SignWebhook(body []byte) string {
	return signHMAC(body, c.WebhookSecret)
}
