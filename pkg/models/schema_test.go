package models

import (
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

func parseModel(t *testing.T, model interface{}) *schema.Schema {
	t.Helper()

	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("schema.Parse: %v", err)
	}
	return s
}

// Credential uniqueness is (merchant_id, platform). merchant_id lives in the
// embedded base model where index tags cannot reach it, so the composite
// index is created by the SQL migrations; the model must not declare a
// narrower unique index of its own, or the first merchant to store a
// platform credential would block every other merchant.
func TestCredentialDeclaresNoPartialUniqueIndex(t *testing.T) {
	s := parseModel(t, &Credential{})

	for _, idx := range s.ParseIndexes() {
		if idx.Class != "UNIQUE" {
			continue
		}
		t.Errorf("credential model declares unique index %q; pair uniqueness belongs to the migrations", idx.Name)
	}
}

func TestWebhookEventIdempotencyKeyIndex(t *testing.T) {
	s := parseModel(t, &WebhookEvent{})

	for _, idx := range s.ParseIndexes() {
		if idx.Class != "UNIQUE" || idx.Name != "idx_webhook_events_platform_event" {
			continue
		}

		columns := make(map[string]bool)
		for _, opt := range idx.Fields {
			columns[opt.DBName] = true
		}
		if !columns["platform"] || !columns["event_id"] {
			t.Errorf("idempotency index covers %v, expected platform and event_id", columns)
		}
		return
	}
	t.Error("webhook event model lost its (platform, event_id) unique index")
}
