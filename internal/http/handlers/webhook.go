package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"

	"zapcommerce/internal/webhook"
	"zapcommerce/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// WebhookHandler receives platform webhook deliveries. The endpoints are
// unauthenticated by design: identity comes from the page mapping and the
// HMAC signature, never from a session.
type WebhookHandler struct {
	ingestor *webhook.Ingestor
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(ingestor *webhook.Ingestor) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor}
}

// Verify godoc
// @Summary Webhook verification handshake
// @Description Answer the platform's subscription challenge
// @Tags webhooks
// @Produce plain
// @Param platform path string true "Platform"
// @Param hub.mode query string true "Handshake mode"
// @Param hub.verify_token query string true "Verify token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string
// @Failure 403 {object} map[string]string
// @Router /webhooks/{platform} [get]
func (h *WebhookHandler) Verify(c echo.Context) error {
	if _, err := models.ParsePlatform(c.Param("platform")); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode != "subscribe" || token == "" || token != os.Getenv("WEBHOOK_VERIFY_TOKEN") {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Verification failed"})
	}

	return c.String(http.StatusOK, challenge)
}

// Receive godoc
// @Summary Receive webhook delivery
// @Description Verify, deduplicate and process one platform delivery
// @Tags webhooks
// @Accept json
// @Produce json
// @Param platform path string true "Platform"
// @Success 200 {object} webhook.Result
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /webhooks/{platform} [post]
func (h *WebhookHandler) Receive(c echo.Context) error {
	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	// The signature covers the exact bytes on the wire, so the body must be
	// read raw before any binding touches it
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
	}
	if len(rawBody) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Empty request body"})
	}

	ctx := c.Request().Context()

	pageID, err := webhook.ExtractPageID(platform, rawBody)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	merchantID, err := h.ingestor.ResolveMerchant(ctx, platform, pageID)
	if err != nil {
		if errors.Is(err, webhook.ErrUnknownPage) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown page"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	signature := c.Request().Header.Get("X-Hub-Signature-256")
	if err := h.ingestor.VerifyDelivery(ctx, merchantID, platform, rawBody, signature); err != nil {
		log.Warn().
			Str("merchant_id", merchantID.String()).
			Str("platform", platform.String()).
			Msg("Webhook delivery failed signature verification")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
	}

	result, err := h.ingestor.Ingest(ctx, merchantID, platform, rawBody)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if result.Duplicate {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "already processed",
			"event_id": result.EventID,
		})
	}

	return c.JSON(http.StatusOK, result)
}
