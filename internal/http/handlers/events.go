package handlers

import (
	"net/http"
	"strconv"

	"zapcommerce/internal/repo"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// EventHandler exposes the merchant's webhook delivery ledger and audit trail
type EventHandler struct {
	events *repo.WebhookEventRepository
	audit  *repo.AuditLogRepository
}

// NewEventHandler creates a new event handler
func NewEventHandler(db *gorm.DB) *EventHandler {
	return &EventHandler{
		events: repo.NewWebhookEventRepository(db),
		audit:  repo.NewAuditLogRepository(db),
	}
}

// ListWebhookEvents godoc
// @Summary List webhook events
// @Description Get the merchant's received webhook deliveries
// @Tags events
// @Produce json
// @Param limit query int false "Limit" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.WebhookEvent
// @Failure 500 {object} map[string]string
// @Router /events/webhooks [get]
// @Security BearerAuth
func (h *EventHandler) ListWebhookEvents(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 {
		limit = 50
	}

	events, err := h.events.ListByMerchant(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, events)
}

// ListAuditLogs godoc
// @Summary List audit logs
// @Description Get the merchant's audit trail, newest first
// @Tags events
// @Produce json
// @Param limit query int false "Limit" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.AuditLog
// @Failure 500 {object} map[string]string
// @Router /events/audit [get]
// @Security BearerAuth
func (h *EventHandler) ListAuditLogs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 {
		limit = 50
	}

	entries, err := h.audit.ListByMerchant(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, entries)
}
