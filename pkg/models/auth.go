package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseMerchantModel is the base model for all merchant-scoped entities
type BaseMerchantModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantID uuid.UUID       `gorm:"type:uuid;index;not null;constraint:OnDelete:CASCADE" json:"merchant_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  *gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty" swaggerignore:"true"`
}

// BaseModel is the base model for system-wide entities
type BaseModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty" swaggerignore:"true"`
}

// BeforeCreate hook to generate UUID if not set
func (b *BaseMerchantModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook to generate UUID if not set
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Merchant represents a tenant account. It is the root of all data
// partitioning: every merchant-scoped row carries its ID and cascades on
// delete so an admin cleanup removes the whole partition.
type Merchant struct {
	BaseModel
	Name         string `gorm:"not null" json:"name" validate:"required"`
	Slug         string `gorm:"unique;index" json:"slug"`
	Status       string `gorm:"default:'active';check:status IN ('active','suspended','churned')" json:"status"`
	Plan         string `gorm:"default:'free'" json:"plan"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	Timezone     string `gorm:"default:'UTC'" json:"timezone"`
}

// User roles. System admins operate across merchants; merchant roles are
// always bound to a single merchant partition.
const (
	RoleSystemAdmin   = "system_admin"
	RoleMerchantAdmin = "merchant_admin"
	RoleMerchantUser  = "merchant_user"
)

// User represents a system or merchant user
type User struct {
	BaseModel
	MerchantID  *uuid.UUID `gorm:"type:uuid;index;constraint:OnDelete:SET NULL" json:"merchant_id,omitempty"` // null for system admins
	Email       string     `gorm:"unique;not null" json:"email" validate:"required,email"`
	Password    string     `gorm:"not null" json:"-"`
	Name        string     `gorm:"not null" json:"name" validate:"required"`
	Role        string     `gorm:"not null" json:"role" validate:"required"` // system_admin, merchant_admin, merchant_user
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// ErrAuditLogImmutable is returned when callers try to mutate or remove an
// audit entry after insert
var ErrAuditLogImmutable = errors.New("audit log entries are append-only")

// AuditLog is an append-only record of security-relevant actions.
// Updates and deletes are rejected at the model layer; created_at never
// changes after insert.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantID *uuid.UUID `gorm:"type:uuid;index" json:"merchant_id"`
	UserID     *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	Action     string     `gorm:"not null" json:"action"`
	Resource   string     `gorm:"not null" json:"resource"`
	ResourceID *uuid.UUID `gorm:"type:uuid" json:"resource_id"`
	Detail     string     `gorm:"type:text" json:"detail"`
	IPAddress  string     `json:"ip_address"`
	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate hook to generate UUID if not set
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate rejects mutation of audit entries
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}

// BeforeDelete rejects removal of audit entries
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}
