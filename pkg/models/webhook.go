package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is the idempotency record for an inbound webhook delivery.
// EventID is a SHA-256 content hash supplied by the receiver; the unique
// index on (platform, event_id) is the duplicate-detection signal, so a
// conflicting insert means "already processed", never an error.
type WebhookEvent struct {
	BaseMerchantModel
	Platform    Platform   `gorm:"not null;uniqueIndex:idx_webhook_events_platform_event;check:platform IN ('whatsapp','instagram')" json:"platform"`
	EventID     string     `gorm:"size:64;not null;uniqueIndex:idx_webhook_events_platform_event" json:"event_id"`
	EventType   string     `gorm:"size:100" json:"event_type"`
	Payload     string     `gorm:"type:jsonb" json:"payload"`
	ArchiveKey  string     `json:"archive_key"` // S3 key of the archived raw body
	ProcessedAt *time.Time `json:"processed_at"`
	ErrorCount  int        `gorm:"not null;default:0" json:"error_count"`
	LastError   string     `gorm:"type:text" json:"last_error"`
}

// Credential is the per-merchant, per-platform secret bundle. Tokens are
// stored encrypted; at most one active row exists per (merchant, platform).
// The pair uniqueness spans the embedded merchant_id column, which struct
// tags cannot reach, so the unique index lives in the SQL migrations.
type Credential struct {
	BaseMerchantModel
	Platform             Platform   `gorm:"not null;check:platform IN ('whatsapp','instagram')" json:"platform"`
	AccessTokenEncrypted string     `gorm:"type:text;not null" json:"-"`
	AppSecretEncrypted   string     `gorm:"type:text" json:"-"`
	VerifyToken          string     `gorm:"size:255" json:"-"`
	TokenExpiresAt       *time.Time `json:"token_expires_at"`
	LastRenewedAt        *time.Time `json:"last_renewed_at"`
	IsActive             bool       `gorm:"default:true" json:"is_active"`
}

// NeedsRenewal reports whether the stored token expires within the horizon
func (c *Credential) NeedsRenewal(now time.Time, horizon time.Duration) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return now.Add(horizon).After(*c.TokenExpiresAt)
}

// PageMapping resolves an inbound delivery to its merchant. Instagram
// webhooks carry a page id, WhatsApp ones a business phone; each maps to
// exactly one merchant per platform.
type PageMapping struct {
	BaseMerchantModel
	Platform   Platform `gorm:"not null;uniqueIndex:idx_page_mappings_platform_external;check:platform IN ('whatsapp','instagram')" json:"platform"`
	ExternalID string   `gorm:"size:100;not null;uniqueIndex:idx_page_mappings_platform_external" json:"external_id"` // instagram page id or whatsapp business phone
	IsActive   bool     `gorm:"default:true" json:"is_active"`
}

// SchemaMigration is the canonical ledger of applied schema changes, keyed
// by the stable version string (migration filename).
type SchemaMigration struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Version   string    `gorm:"size:255;not null;uniqueIndex" json:"version"`
	AppliedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"applied_at"`
	Success   bool      `gorm:"not null;default:true" json:"success"`
	Error     string    `gorm:"type:text" json:"error"`
}

// TableName implements the GORM tabler interface
func (SchemaMigration) TableName() string { return "schema_migrations" }
