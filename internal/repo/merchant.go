package repo

import (
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MerchantRepository handles merchant (tenant root) data access.
// Merchants are system-wide entities managed by admin sessions only.
type MerchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

// GetByID gets a merchant by ID
func (r *MerchantRepository) GetByID(id uuid.UUID) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.Where("id = ?", id).First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

// GetBySlug gets a merchant by its public slug
func (r *MerchantRepository) GetBySlug(slug string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.Where("slug = ?", slug).First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

// Exists reports whether a merchant with the given ID exists
func (r *MerchantRepository) Exists(id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.Merchant{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Create creates a new merchant
func (r *MerchantRepository) Create(merchant *models.Merchant) error {
	return r.db.Create(merchant).Error
}

// Update updates a merchant
func (r *MerchantRepository) Update(merchant *models.Merchant) error {
	return r.db.Save(merchant).Error
}

// Delete removes a merchant. Foreign keys cascade, so the whole partition
// goes with it; this exists for admin cleanup, not normal operation.
func (r *MerchantRepository) Delete(id uuid.UUID) error {
	result := r.db.Unscoped().Where("id = ?", id).Delete(&models.Merchant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List lists merchants with pagination
func (r *MerchantRepository) List(limit, offset int) (models.PaginationResult[models.Merchant], error) {
	var merchants []models.Merchant
	var total int64

	if err := r.db.Model(&models.Merchant{}).Count(&total).Error; err != nil {
		return models.PaginationResult[models.Merchant]{}, err
	}

	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&merchants).Error
	if err != nil {
		return models.PaginationResult[models.Merchant]{}, err
	}

	page := 1
	totalPages := 1
	if limit > 0 {
		page = (offset / limit) + 1
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return models.PaginationResult[models.Merchant]{
		Data:       merchants,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
	}, nil
}
