package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"zapcommerce/internal/repo"
	"zapcommerce/internal/window"
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// MessagingHandler handles conversations, messages and window checks
type MessagingHandler struct {
	conversations *repo.ConversationRepository
	messages      *repo.MessageRepository
	windows       *window.Service
}

// NewMessagingHandler creates a new messaging handler
func NewMessagingHandler(db *gorm.DB, windows *window.Service) *MessagingHandler {
	return &MessagingHandler{
		conversations: repo.NewConversationRepository(db),
		messages:      repo.NewMessageRepository(db),
		windows:       windows,
	}
}

// ListConversations godoc
// @Summary List conversations
// @Description Get the merchant's conversations with pagination
// @Tags messaging
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} models.PaginationResult[models.Conversation]
// @Failure 500 {object} map[string]string
// @Router /conversations [get]
// @Security BearerAuth
func (h *MessagingHandler) ListConversations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	if limit <= 0 {
		limit = 20
	}

	result, err := h.conversations.ListByMerchant(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}

// ListMessages godoc
// @Summary List messages
// @Description Get the messages of a conversation, newest first
// @Tags messaging
// @Produce json
// @Param id path string true "Conversation ID"
// @Param limit query int false "Limit" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Message
// @Failure 404 {object} map[string]string
// @Router /conversations/{id}/messages [get]
// @Security BearerAuth
func (h *MessagingHandler) ListMessages(c echo.Context) error {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID format"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 {
		limit = 50
	}

	messages, err := h.messages.ListByConversation(c.Request().Context(), conversationID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, messages)
}

// WindowStatus godoc
// @Summary Check messaging window
// @Description Report whether the conversation's customer-service window is open
// @Tags messaging
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} models.WindowStatus
// @Failure 404 {object} map[string]string
// @Router /conversations/{id}/window [get]
// @Security BearerAuth
func (h *MessagingHandler) WindowStatus(c echo.Context) error {
	ctx := c.Request().Context()

	conversation, err := h.getConversation(c)
	if err != nil {
		return err
	}

	status, err := h.windows.Status(ctx, conversation.MerchantID, conversation.Platform, conversation.CustomerIdentifier())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, status)
}

// SendReply godoc
// @Summary Send a reply
// @Description Record an outbound message; rejected when the window is closed
// @Tags messaging
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body map[string]string true "Message content"
// @Success 201 {object} models.Message
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /conversations/{id}/messages [post]
// @Security BearerAuth
func (h *MessagingHandler) SendReply(c echo.Context) error {
	ctx := c.Request().Context()

	conversation, err := h.getConversation(c)
	if err != nil {
		return err
	}

	var req struct {
		Content string `json:"content" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	// The window check and counter increment are one atomic statement, so a
	// concurrent expiry cannot slip a message through
	if err := h.windows.RegisterReply(ctx, conversation.MerchantID, conversation.Platform, conversation.CustomerIdentifier()); err != nil {
		if errors.Is(err, window.ErrWindowClosed) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Messaging window is closed"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		Direction:      "out",
		Type:           "text",
		Content:        req.Content,
	}
	if err := h.messages.Create(ctx, message); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := h.conversations.TouchLastMessage(ctx, conversation.ID, time.Now(), false); err != nil {
		// Not fatal, the message itself is already stored
		_ = err
	}

	return c.JSON(http.StatusCreated, message)
}

// getConversation loads the conversation through the tenant scope, so a
// foreign id is indistinguishable from a missing one
func (h *MessagingHandler) getConversation(c echo.Context) (*models.Conversation, error) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID format"})
	}

	conversation, err := h.conversations.GetByID(c.Request().Context(), conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return conversation, nil
}
