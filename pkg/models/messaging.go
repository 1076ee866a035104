package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation represents a thread with a customer on a single platform.
// Identity is (merchant_id, platform, customer identifier); the identifier
// lives in a platform-specific column (phone for WhatsApp, username for
// Instagram) with partial unique indexes created by the migrations so the
// same customer never gets a duplicate thread.
type Conversation struct {
	BaseMerchantModel
	Platform          Platform   `gorm:"not null;check:platform IN ('whatsapp','instagram')" json:"platform"`
	CustomerPhone     *string    `gorm:"size:50" json:"customer_phone,omitempty"`
	CustomerInstagram *string    `gorm:"size:100" json:"customer_instagram,omitempty"`
	CustomerName      string     `gorm:"size:255" json:"customer_name"`
	Status            string     `gorm:"default:'open'" json:"status"` // open, closed, waiting
	IsArchived        bool       `gorm:"default:false" json:"is_archived"`
	LastMessageAt     *time.Time `json:"last_message_at"`
	UnreadCount       int        `gorm:"default:0" json:"unread_count"`
}

// CustomerIdentifier returns the platform-specific customer key
func (c *Conversation) CustomerIdentifier() string {
	if c.Platform == PlatformInstagram && c.CustomerInstagram != nil {
		return *c.CustomerInstagram
	}
	if c.CustomerPhone != nil {
		return *c.CustomerPhone
	}
	return ""
}

// Message represents a message in a conversation. It carries no merchant_id
// of its own; tenancy resolves transitively through the owning conversation.
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index;constraint:OnDelete:CASCADE" json:"conversation_id"`
	Direction      string     `gorm:"not null;check:direction IN ('in','out')" json:"direction"`
	Type           string     `gorm:"not null;default:'text'" json:"type"` // text, image, audio, video, document
	Content        string     `gorm:"type:text" json:"content"`
	Status         string     `gorm:"default:'sent'" json:"status"` // sent, delivered, read, failed
	ExternalID     string     `gorm:"index" json:"external_id"`
	WebhookEventID *uuid.UUID `gorm:"type:uuid;index" json:"webhook_event_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
}

// MessageWindow tracks the rolling 24-hour customer-service window for a
// (merchant, platform, customer) triple. At most one row exists per triple;
// inbound activity extends the window and increments the inbound counter via
// a single atomic upsert.
type MessageWindow struct {
	BaseMerchantModel
	Platform             Platform  `gorm:"not null;check:platform IN ('whatsapp','instagram')" json:"platform"`
	CustomerIdentifier   string    `gorm:"size:100;not null" json:"customer_identifier"`
	WindowExpiresAt      time.Time `gorm:"not null;index" json:"window_expires_at"`
	MessageCountInWindow int       `gorm:"not null;default:1" json:"message_count_in_window"`
	MerchantResponseCount int      `gorm:"not null;default:0" json:"merchant_response_count"`
	LastInboundAt        time.Time `gorm:"not null" json:"last_inbound_at"`
}

// IsOpen reports whether the window still permits outbound messages at now
func (w *MessageWindow) IsOpen(now time.Time) bool {
	return now.Before(w.WindowExpiresAt)
}

// Remaining returns the time left in the window, clamped at zero
func (w *MessageWindow) Remaining(now time.Time) time.Duration {
	d := w.WindowExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
