package handlers

import (
	"net/http"
	"strconv"

	"zapcommerce/internal/auth"
	"zapcommerce/internal/repo"
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// MerchantHandler handles merchant management
type MerchantHandler struct {
	merchantRepo *repo.MerchantRepository
	userRepo     *repo.UserRepository
	authService  *auth.Service
	db           *gorm.DB
}

// NewMerchantHandler creates a new merchant handler
func NewMerchantHandler(db *gorm.DB, authService *auth.Service) *MerchantHandler {
	return &MerchantHandler{
		merchantRepo: repo.NewMerchantRepository(db),
		userRepo:     repo.NewUserRepository(db),
		authService:  authService,
		db:           db,
	}
}

// List godoc
// @Summary List merchants
// @Description Get list of merchants with pagination
// @Tags merchants
// @Accept json
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} models.PaginationResult[models.Merchant]
// @Failure 500 {object} map[string]string
// @Router /admin/merchants [get]
// @Security BearerAuth
func (h *MerchantHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	if limit <= 0 {
		limit = 20
	}

	result, err := h.merchantRepo.List(limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID godoc
// @Summary Get merchant by ID
// @Description Get a specific merchant by ID
// @Tags merchants
// @Accept json
// @Produce json
// @Param id path string true "Merchant ID"
// @Success 200 {object} models.Merchant
// @Failure 404 {object} map[string]string
// @Router /admin/merchants/{id} [get]
// @Security BearerAuth
func (h *MerchantHandler) GetByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID format"})
	}

	merchant, err := h.merchantRepo.GetByID(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Merchant not found"})
	}

	return c.JSON(http.StatusOK, merchant)
}

// Create godoc
// @Summary Create merchant
// @Description Create a new merchant
// @Tags merchants
// @Accept json
// @Produce json
// @Param merchant body models.Merchant true "Merchant data"
// @Success 201 {object} models.Merchant
// @Failure 400 {object} map[string]string
// @Router /admin/merchants [post]
// @Security BearerAuth
func (h *MerchantHandler) Create(c echo.Context) error {
	var merchant models.Merchant
	if err := c.Bind(&merchant); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&merchant); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.merchantRepo.Create(&merchant); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, merchant)
}

// Update godoc
// @Summary Update merchant
// @Description Update an existing merchant
// @Tags merchants
// @Accept json
// @Produce json
// @Param id path string true "Merchant ID"
// @Param merchant body models.Merchant true "Merchant data"
// @Success 200 {object} models.Merchant
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/merchants/{id} [put]
// @Security BearerAuth
func (h *MerchantHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID format"})
	}

	merchant, err := h.merchantRepo.GetByID(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Merchant not found"})
	}

	var req models.Merchant
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	merchant.Name = req.Name
	merchant.Status = req.Status
	merchant.Plan = req.Plan
	merchant.ContactEmail = req.ContactEmail
	merchant.Timezone = req.Timezone

	if err := h.merchantRepo.Update(merchant); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, merchant)
}

// Delete godoc
// @Summary Delete merchant
// @Description Delete a merchant and its whole data partition
// @Tags merchants
// @Accept json
// @Produce json
// @Param id path string true "Merchant ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /admin/merchants/{id} [delete]
// @Security BearerAuth
func (h *MerchantHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID format"})
	}

	if err := h.merchantRepo.Delete(id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Merchant not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

// CreateMerchantAdmin godoc
// @Summary Create merchant admin
// @Description Create an admin user bound to a merchant
// @Tags merchants
// @Accept json
// @Produce json
// @Param merchant_id path string true "Merchant ID"
// @Param request body map[string]string true "User data"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string
// @Router /admin/merchants/{merchant_id}/users [post]
// @Security BearerAuth
func (h *MerchantHandler) CreateMerchantAdmin(c echo.Context) error {
	merchantID, err := uuid.Parse(c.Param("merchant_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid merchant ID format"})
	}

	exists, err := h.merchantRepo.Exists(merchantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if !exists {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Merchant not found"})
	}

	var req struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to hash password"})
	}

	user := &models.User{
		MerchantID: &merchantID,
		Name:       req.Name,
		Email:      req.Email,
		Password:   hashed,
		Role:       models.RoleMerchantAdmin,
		IsActive:   true,
	}
	if err := h.userRepo.Create(user); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, user)
}
