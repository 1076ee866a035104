package models

// PaginationResult represents paginated results
type PaginationResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// WindowStatus is the read contract for the messaging-window check
type WindowStatus struct {
	CanSend          bool   `json:"can_send"`
	WindowExpiresAt  string `json:"window_expires_at,omitempty"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	MessageCount     int    `json:"message_count"`
	ResponseCount    int    `json:"response_count"`
}

// GetAllModels returns all models for GORM AutoMigrate
func GetAllModels() []interface{} {
	return []interface{}{
		// Core models
		&Merchant{},
		&User{},

		// Messaging models
		&Conversation{},
		&Message{},
		&MessageWindow{},

		// Webhook models
		&WebhookEvent{},
		&Credential{},
		&PageMapping{},

		// System models
		&AuditLog{},
	}
}
