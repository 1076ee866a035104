package handlers

import (
	"zapcommerce/internal/app"
	"zapcommerce/internal/http/middleware"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all API routes
func SetupRoutes(api *echo.Group, services *app.Services) {
	// WebSocket hub doubles as the real-time notifier for the ingestor
	wsHandler := NewWebSocketHandler(services.AuthService)
	services.Ingestor.SetNotifier(wsHandler)

	// Auth routes (no authentication required)
	authHandler := NewAuthHandler(services.AuthService)
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Webhook receiver (unauthenticated; HMAC-verified per delivery)
	webhookHandler := NewWebhookHandler(services.Ingestor)
	api.GET("/webhooks/:platform", webhookHandler.Verify)
	api.POST("/webhooks/:platform", webhookHandler.Receive)

	// WebSocket endpoint (handles authentication manually via query parameter)
	api.GET("/ws", wsHandler.HandleWebSocket)

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(services.AuthService))
	protected.Use(middleware.MerchantResolver())

	profileAuth := protected.Group("/auth")
	profileAuth.PUT("/change-password", authHandler.ChangePassword)

	// System admin routes
	admin := protected.Group("/admin")
	admin.Use(middleware.SystemAdminOnly())
	merchantHandler := NewMerchantHandler(services.DB, services.AuthService)
	admin.GET("/merchants", merchantHandler.List)
	admin.POST("/merchants", merchantHandler.Create)
	admin.GET("/merchants/:id", merchantHandler.GetByID)
	admin.PUT("/merchants/:id", merchantHandler.Update)
	admin.DELETE("/merchants/:id", merchantHandler.Delete)
	admin.POST("/merchants/:merchant_id/users", merchantHandler.CreateMerchantAdmin)

	// Merchant routes (require merchant context)
	merchant := protected.Group("")
	merchant.Use(middleware.MerchantUserOrAbove())
	merchant.Use(middleware.RequireMerchant())

	messagingHandler := NewMessagingHandler(services.DB, services.WindowService)
	conversations := merchant.Group("/conversations")
	conversations.GET("", messagingHandler.ListConversations)
	conversations.GET("/:id/messages", messagingHandler.ListMessages)
	conversations.POST("/:id/messages", messagingHandler.SendReply)
	conversations.GET("/:id/window", messagingHandler.WindowStatus)

	eventHandler := NewEventHandler(services.DB)
	events := merchant.Group("/events")
	events.GET("/webhooks", eventHandler.ListWebhookEvents)
	events.GET("/audit", eventHandler.ListAuditLogs)

	// Credential management (merchant admins only)
	credentialHandler := NewCredentialHandler(services.DB, services.Cipher)
	credentials := merchant.Group("/credentials", middleware.MerchantAdminOrAbove())
	credentials.GET("", credentialHandler.List)
	credentials.PUT("", credentialHandler.Upsert)
	credentials.DELETE("/:platform", credentialHandler.Deactivate)
	credentials.PUT("/pages", credentialHandler.UpsertPageMapping)
}
