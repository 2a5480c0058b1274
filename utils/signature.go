package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"shopdesk/models"
)

const (
	ShopifySignatureHeader     = "x-shopify-hmac-sha256"
	WooCommerceSignatureHeader = "x-wc-webhook-signature"

	WebhookSecretHeader       = "x-webhook-secret"
	LegacyWebhookSecretHeader = "webhook-secret"
)

// SignatureHeader returns the header carrying the order webhook signature
// for the given platform.
func SignatureHeader(platform models.Platform) (string, error) {
	switch platform {
	case models.PlatformShopify:
		return ShopifySignatureHeader, nil
	case models.PlatformWooCommerce:
		return WooCommerceSignatureHeader, nil
	default:
		return "", &UnsupportedPlatformError{Platform: string(platform)}
	}
}

// SignPayload returns base64(HMAC_SHA256(secret, body)).
func SignPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSignature checks signature against the raw, unparsed request
// body. The comparison runs in constant time.
func VerifyHMACSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := SignPayload(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
