package repo

import (
	"context"

	"zapcommerce/internal/tenant"
	"zapcommerce/pkg/models"

	"gorm.io/gorm"
)

// AuditLogRepository appends security-relevant actions. There is no update
// or delete path; the model hooks and the database trigger both reject them.
type AuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append writes an audit entry
func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByMerchant lists audit entries for the context merchant, newest first
func (r *AuditLogRepository) ListByMerchant(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(ctx)).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	return entries, err
}
