package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopdesk/models"
)

func TestSignPayloadMatchesHMACSHA256Base64(t *testing.T) {
	body := []byte(`{"id":9001}`)

	mac := hmac.New(sha256.New, []byte("S"))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, SignPayload(body, "S"))
}

func TestVerifyHMACSignature(t *testing.T) {
	body := []byte(`{"id":9001,"total_price":"42.50"}`)
	good := SignPayload(body, "S")

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		want      bool
	}{
		{"correct secret", body, good, "S", true},
		{"signed with other secret", body, SignPayload(body, "S2"), "S", false},
		{"body changed", []byte(`{"id":9002,"total_price":"42.50"}`), good, "S", false},
		{"empty signature", body, "", "S", false},
		{"empty secret", body, SignPayload(body, ""), "", false},
		{"hex instead of base64", body, "deadbeef", "S", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyHMACSignature(tt.body, tt.signature, tt.secret))
		})
	}
}

func TestSignatureHeader(t *testing.T) {
	h, err := SignatureHeader(models.PlatformShopify)
	require.NoError(t, err)
	assert.Equal(t, "x-shopify-hmac-sha256", h)

	h, err = SignatureHeader(models.PlatformWooCommerce)
	require.NoError(t, err)
	assert.Equal(t, "x-wc-webhook-signature", h)

	_, err = SignatureHeader(models.PlatformWordPress)
	var upe *UnsupportedPlatformError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, "wordpress", upe.Platform)
}
