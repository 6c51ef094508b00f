package routes

import (
	"opencat/pkg/config"
	"opencat/pkg/handlers"
	"opencat/pkg/middleware"
	"opencat/pkg/services"
	"opencat/pkg/version"

	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and returns the Gin router with all routes.
// Admin operations (creating and listing apps) use the operator's shared
// secret key since no per-app API key can exist before
// the app does; every other /v1 route is scoped to the App bound by its
// bearer key. Store notification endpoints stay unauthenticated at the
// HTTP layer and rely on the adapter's own signature verification.
func SetupRouter(h *handlers.HandlersCollection, apiKeys *services.APIKeyService, cfg config.Environment) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": version.GetVersion(),
		})
	})

	v1 := router.Group("/v1")
	{
		notifications := v1.Group("/notifications")
		{
			notifications.POST("/apple", h.Notification.Apple)
			notifications.POST("/google", h.Notification.Google)
		}

		admin := v1.Group("/apps")
		admin.Use(middleware.AdminMiddleware(cfg.ServerSecretKey))
		{
			admin.POST("", h.App.CreateApp)
			admin.GET("", h.App.ListApps)
		}

		scoped := v1.Group("")
		scoped.Use(middleware.AuthMiddleware(apiKeys))
		{
			apps := scoped.Group("/apps/:id")
			{
				apps.PUT("/credentials", h.App.SetCredentials)
				apps.GET("/credentials", h.App.GetCredentials)
				apps.POST("/entitlements", h.App.CreateEntitlement)
				apps.GET("/entitlements", h.App.ListEntitlements)
				apps.POST("/products", h.App.CreateProduct)
				apps.GET("/products", h.App.ListProducts)
				apps.GET("/offerings", h.App.GetOfferings)
				apps.POST("/sync-products", h.App.SyncProducts)
				apps.POST("/api-keys", h.App.IssueAPIKey)
				apps.DELETE("/api-keys/:key_id", h.App.RevokeAPIKey)
			}

			scoped.POST("/receipts", h.Subscriber.SubmitReceipt)

			subscribers := scoped.Group("/subscribers/:app_user_id")
			{
				subscribers.GET("", h.Subscriber.GetSubscriber)
				subscribers.GET("/transactions", h.Subscriber.ListTransactions)
			}

			scoped.POST("/webhooks", h.Webhook.RegisterEndpoint)
			scoped.GET("/webhooks", h.Webhook.ListEndpoints)
			scoped.POST("/webhooks/:id/deliveries/:delivery_id/redeliver", h.Webhook.Redeliver)

			scoped.GET("/events", h.Webhook.ListEvents)
		}
	}

	return router
}
