package models

import (
	"testing"
	"time"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		input    string
		expected Platform
		wantErr  bool
	}{
		{"whatsapp", PlatformWhatsApp, false},
		{"instagram", PlatformInstagram, false},
		{"WhatsApp", PlatformWhatsApp, false},
		{"INSTAGRAM", PlatformInstagram, false},
		{"  instagram  ", PlatformInstagram, false},
		{"telegram", "", true},
		{"", "", true},
	}

	for _, test := range tests {
		got, err := ParsePlatform(test.input)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParsePlatform(%q) expected error, got %q", test.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePlatform(%q) unexpected error: %v", test.input, err)
			continue
		}
		if got != test.expected {
			t.Errorf("ParsePlatform(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestPlatformIdentifierColumn(t *testing.T) {
	if col := PlatformWhatsApp.IdentifierColumn(); col != "customer_phone" {
		t.Errorf("whatsapp identifier column = %q, expected customer_phone", col)
	}
	if col := PlatformInstagram.IdentifierColumn(); col != "customer_instagram" {
		t.Errorf("instagram identifier column = %q, expected customer_instagram", col)
	}
}

func TestMessageWindowRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	open := MessageWindow{WindowExpiresAt: now.Add(2 * time.Hour)}
	if !open.IsOpen(now) {
		t.Error("window expiring in 2h should be open")
	}
	if got := open.Remaining(now); got != 2*time.Hour {
		t.Errorf("remaining = %v, expected 2h", got)
	}

	// Expired windows never report negative remaining time
	expired := MessageWindow{WindowExpiresAt: now.Add(-time.Hour)}
	if expired.IsOpen(now) {
		t.Error("window expired 1h ago should not be open")
	}
	if got := expired.Remaining(now); got != 0 {
		t.Errorf("remaining = %v, expected 0", got)
	}

	// Boundary: now == expiry means closed
	boundary := MessageWindow{WindowExpiresAt: now}
	if boundary.IsOpen(now) {
		t.Error("window expiring exactly now should not be open")
	}
}

func TestConversationCustomerIdentifier(t *testing.T) {
	phone := "5527999990000"
	user := "acme.customer"

	wa := Conversation{Platform: PlatformWhatsApp, CustomerPhone: &phone}
	if got := wa.CustomerIdentifier(); got != phone {
		t.Errorf("whatsapp identifier = %q, expected %q", got, phone)
	}

	ig := Conversation{Platform: PlatformInstagram, CustomerInstagram: &user}
	if got := ig.CustomerIdentifier(); got != user {
		t.Errorf("instagram identifier = %q, expected %q", got, user)
	}

	empty := Conversation{Platform: PlatformInstagram}
	if got := empty.CustomerIdentifier(); got != "" {
		t.Errorf("identifier for empty conversation = %q, expected empty", got)
	}
}
