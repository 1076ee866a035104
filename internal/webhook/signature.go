package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidSignature is returned when a delivery fails HMAC verification
var ErrInvalidSignature = errors.New("webhook signature mismatch")

// ComputeEventID derives the idempotency key for a delivery: the SHA-256 of
// the merchant id and the raw body. The same payload delivered twice hashes
// to the same key, and the same payload for two merchants does not collide.
func ComputeEventID(merchantID uuid.UUID, rawBody []byte) string {
	h := sha256.New()
	h.Write([]byte(merchantID.String()))
	h.Write(rawBody)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks the platform's HMAC-SHA256 signature over the raw
// body. The header value may carry the conventional "sha256=" prefix.
// Comparison is constant-time.
func VerifySignature(rawBody []byte, signatureHeader, appSecret string) error {
	if signatureHeader == "" || appSecret == "" {
		return ErrInvalidSignature
	}

	provided := strings.TrimPrefix(signatureHeader, "sha256=")
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}
