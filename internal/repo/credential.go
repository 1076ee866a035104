package repo

import (
	"context"
	"time"

	"zapcommerce/internal/tenant"
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepository handles per-merchant platform credentials
type CredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// GetByMerchantAndPlatform gets the single credential row for the pair
func (r *CredentialRepository) GetByMerchantAndPlatform(ctx context.Context, merchantID uuid.UUID, platform models.Platform) (*models.Credential, error) {
	var credential models.Credential
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND platform = ? AND is_active = ?", merchantID, platform, true).
		First(&credential).Error
	if err != nil {
		return nil, err
	}
	return &credential, nil
}

// Upsert stores the credential, replacing any previous bundle for the same
// (merchant, platform). At most one active row exists per pair; rotation is
// an update in place, never a second row.
func (r *CredentialRepository) Upsert(ctx context.Context, credential *models.Credential) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "merchant_id"}, {Name: "platform"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token_encrypted", "app_secret_encrypted", "verify_token",
				"token_expires_at", "last_renewed_at", "is_active", "updated_at",
			}),
		}).
		Create(credential).Error
}

// ListByMerchant lists credentials for the context merchant
func (r *CredentialRepository) ListByMerchant(ctx context.Context) ([]models.Credential, error) {
	var credentials []models.Credential
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(ctx)).
		Order("platform ASC").
		Find(&credentials).Error
	return credentials, err
}

// ListExpiring lists active credentials whose tokens expire within the
// horizon, across all merchants, for the renewal sweep
func (r *CredentialRepository) ListExpiring(ctx context.Context, horizon time.Duration) ([]models.Credential, error) {
	var credentials []models.Credential
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND token_expires_at IS NOT NULL AND token_expires_at < ?",
			true, time.Now().Add(horizon)).
		Find(&credentials).Error
	return credentials, err
}

// Deactivate soft-disables the credential for the pair
func (r *CredentialRepository) Deactivate(ctx context.Context, merchantID uuid.UUID, platform models.Platform) error {
	result := r.db.WithContext(ctx).Model(&models.Credential{}).
		Where("merchant_id = ? AND platform = ?", merchantID, platform).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PageMappingRepository resolves inbound deliveries to merchants
type PageMappingRepository struct {
	db *gorm.DB
}

// NewPageMappingRepository creates a new page mapping repository
func NewPageMappingRepository(db *gorm.DB) *PageMappingRepository {
	return &PageMappingRepository{db: db}
}

// ResolveMerchant maps a platform external id (instagram page id or whatsapp
// business phone) to its merchant
func (r *PageMappingRepository) ResolveMerchant(ctx context.Context, platform models.Platform, externalID string) (uuid.UUID, error) {
	var mapping models.PageMapping
	err := r.db.WithContext(ctx).
		Where("platform = ? AND external_id = ? AND is_active = ?", platform, externalID, true).
		First(&mapping).Error
	if err != nil {
		return uuid.Nil, err
	}
	return mapping.MerchantID, nil
}

// Upsert stores the mapping; the unique (platform, external_id) index keeps
// an external page bound to exactly one merchant
func (r *PageMappingRepository) Upsert(ctx context.Context, mapping *models.PageMapping) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"merchant_id", "is_active", "updated_at"}),
		}).
		Create(mapping).Error
}
