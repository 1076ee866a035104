package models

import (
	"fmt"
	"strings"
)

// Platform identifies the messaging platform a record belongs to.
// Values are normalized to lowercase before they reach the database so that
// uniqueness constraints on (merchant_id, platform) hold regardless of how
// the caller spelled the value.
type Platform string

const (
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformInstagram Platform = "instagram"
)

// ParsePlatform normalizes and validates a platform value
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// IsValid reports whether the platform is one of the supported values
func (p Platform) IsValid() bool {
	return p == PlatformWhatsApp || p == PlatformInstagram
}

func (p Platform) String() string {
	return string(p)
}

// IdentifierColumn returns the conversation column that carries the customer
// identifier for this platform (phone for WhatsApp, username for Instagram)
func (p Platform) IdentifierColumn() string {
	if p == PlatformInstagram {
		return "customer_instagram"
	}
	return "customer_phone"
}
