package handlers

import (
	"net/http"
	"time"

	"zapcommerce/internal/repo"
	"zapcommerce/internal/tenant"
	"zapcommerce/internal/vault"
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CredentialHandler handles platform credential and page mapping management
type CredentialHandler struct {
	credentials *repo.CredentialRepository
	mappings    *repo.PageMappingRepository
	audit       *repo.AuditLogRepository
	cipher      *vault.Cipher
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(db *gorm.DB, cipher *vault.Cipher) *CredentialHandler {
	return &CredentialHandler{
		credentials: repo.NewCredentialRepository(db),
		mappings:    repo.NewPageMappingRepository(db),
		audit:       repo.NewAuditLogRepository(db),
		cipher:      cipher,
	}
}

// recordAudit appends a security audit entry; failures are logged, never
// surfaced, because the primary write has already committed
func (h *CredentialHandler) recordAudit(c echo.Context, action, resource string, resourceID *uuid.UUID) {
	ctx := c.Request().Context()
	merchantID, _ := tenant.MerchantID(ctx)
	userID, _ := c.Get("user_id").(uuid.UUID)

	entry := &models.AuditLog{
		MerchantID: &merchantID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  c.RealIP(),
	}
	if userID != uuid.Nil {
		entry.UserID = &userID
	}
	if err := h.audit.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to write audit entry")
	}
}

// UpsertCredentialRequest carries plaintext secrets over TLS; they are
// encrypted before touching the database and never returned
type UpsertCredentialRequest struct {
	Platform       string     `json:"platform" validate:"required"`
	AccessToken    string     `json:"access_token" validate:"required"`
	AppSecret      string     `json:"app_secret" validate:"required"`
	VerifyToken    string     `json:"verify_token"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`
}

// Upsert godoc
// @Summary Store platform credentials
// @Description Encrypt and store the merchant's platform tokens
// @Tags credentials
// @Accept json
// @Produce json
// @Param request body UpsertCredentialRequest true "Credential data"
// @Success 200 {object} models.Credential
// @Failure 400 {object} map[string]string
// @Router /credentials [put]
// @Security BearerAuth
func (h *CredentialHandler) Upsert(c echo.Context) error {
	ctx := c.Request().Context()
	merchantID, ok := tenant.MerchantID(ctx)
	if !ok {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Merchant context required"})
	}

	var req UpsertCredentialRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	tokenEnc, err := h.cipher.Encrypt(req.AccessToken)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to encrypt credentials"})
	}
	secretEnc, err := h.cipher.Encrypt(req.AppSecret)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to encrypt credentials"})
	}

	credential := &models.Credential{
		BaseMerchantModel:    models.BaseMerchantModel{MerchantID: merchantID},
		Platform:             platform,
		AccessTokenEncrypted: tokenEnc,
		AppSecretEncrypted:   secretEnc,
		VerifyToken:          req.VerifyToken,
		TokenExpiresAt:       req.TokenExpiresAt,
		IsActive:             true,
	}
	if err := h.credentials.Upsert(ctx, credential); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	h.recordAudit(c, "credential.upsert", "credential", &credential.ID)

	return c.JSON(http.StatusOK, credential)
}

// List godoc
// @Summary List credentials
// @Description List the merchant's stored credentials, secrets omitted
// @Tags credentials
// @Produce json
// @Success 200 {array} models.Credential
// @Failure 500 {object} map[string]string
// @Router /credentials [get]
// @Security BearerAuth
func (h *CredentialHandler) List(c echo.Context) error {
	credentials, err := h.credentials.ListByMerchant(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, credentials)
}

// Deactivate godoc
// @Summary Deactivate credentials
// @Description Deactivate the merchant's credentials for a platform
// @Tags credentials
// @Produce json
// @Param platform path string true "Platform"
// @Success 204
// @Failure 400 {object} map[string]string
// @Router /credentials/{platform} [delete]
// @Security BearerAuth
func (h *CredentialHandler) Deactivate(c echo.Context) error {
	ctx := c.Request().Context()
	merchantID, ok := tenant.MerchantID(ctx)
	if !ok {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Merchant context required"})
	}

	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.credentials.Deactivate(ctx, merchantID, platform); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	h.recordAudit(c, "credential.deactivate", "credential", nil)

	return c.NoContent(http.StatusNoContent)
}

// UpsertPageMapping godoc
// @Summary Map a platform page to the merchant
// @Description Register the page id or business phone webhooks arrive under
// @Tags credentials
// @Accept json
// @Produce json
// @Param request body map[string]string true "Mapping data"
// @Success 200 {object} models.PageMapping
// @Failure 400 {object} map[string]string
// @Router /credentials/pages [put]
// @Security BearerAuth
func (h *CredentialHandler) UpsertPageMapping(c echo.Context) error {
	ctx := c.Request().Context()
	merchantID, ok := tenant.MerchantID(ctx)
	if !ok {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Merchant context required"})
	}

	var req struct {
		Platform   string `json:"platform" validate:"required"`
		ExternalID string `json:"external_id" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	mapping := &models.PageMapping{
		BaseMerchantModel: models.BaseMerchantModel{MerchantID: merchantID},
		Platform:          platform,
		ExternalID:        req.ExternalID,
		IsActive:          true,
	}
	if err := h.mappings.Upsert(ctx, mapping); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	h.recordAudit(c, "page_mapping.upsert", "page_mapping", &mapping.ID)

	return c.JSON(http.StatusOK, mapping)
}
