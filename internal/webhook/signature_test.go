package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestComputeEventIDStable(t *testing.T) {
	merchant := uuid.New()
	body := []byte(`{"object":"instagram","entry":[]}`)

	a := ComputeEventID(merchant, body)
	b := ComputeEventID(merchant, body)
	if a != b {
		t.Errorf("event id not stable: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("event id length = %d, expected 64 hex chars", len(a))
	}
}

func TestComputeEventIDSeparatesMerchants(t *testing.T) {
	body := []byte(`{"object":"instagram","entry":[]}`)

	a := ComputeEventID(uuid.New(), body)
	b := ComputeEventID(uuid.New(), body)
	if a == b {
		t.Error("identical payloads for different merchants must not share an event id")
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"entry":[{"id":"123"}]}`)
	secret := "app-secret"

	if err := VerifySignature(body, sign(body, secret), secret); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
	if err := VerifySignature(body, "sha256="+sign(body, secret), secret); err != nil {
		t.Errorf("valid prefixed signature rejected: %v", err)
	}

	if err := VerifySignature(body, sign(body, "other-secret"), secret); err != ErrInvalidSignature {
		t.Errorf("wrong-secret signature error = %v, expected ErrInvalidSignature", err)
	}
	if err := VerifySignature([]byte("tampered"), sign(body, secret), secret); err != ErrInvalidSignature {
		t.Errorf("tampered-body signature error = %v, expected ErrInvalidSignature", err)
	}
	if err := VerifySignature(body, "", secret); err != ErrInvalidSignature {
		t.Errorf("missing signature error = %v, expected ErrInvalidSignature", err)
	}
	if err := VerifySignature(body, sign(body, secret), ""); err != ErrInvalidSignature {
		t.Errorf("missing secret error = %v, expected ErrInvalidSignature", err)
	}
}
