package handler

import (
	"siesa-sync/internal/middleware"
	"siesa-sync/pkg/logger"

	"github.com/gin-gonic/gin"
)

// NewRouter registers the webhook, admin and health routes. The webhook
// route authenticates by Shopify HMAC; admin routes are expected to sit
// behind the deployment's network boundary.
func NewRouter(
	log *logger.Logger,
	webhookSecret string,
	webhooks *WebhookHandler,
	orders *OrderHandler,
	syncs *SyncHandler,
	health *HealthHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(log))

	r.GET("/healthz", health.Check)

	hooks := r.Group("/webhooks/shopify")
	hooks.Use(middleware.WebhookHMACMiddleware(webhookSecret))
	{
		hooks.POST("/orders", webhooks.OrderCreated)
	}

	api := r.Group("/api")
	{
		api.GET("/orders", orders.List)
		api.GET("/orders/:id", orders.GetByID)
		api.GET("/orders/:id/logs", orders.Logs)
		api.POST("/orders/:id/reset", orders.Reset)
		api.POST("/orders/requeue-stalled", orders.RequeueStalled)
		api.POST("/orders/backfill", orders.Backfill)

		api.POST("/inventory/sync", syncs.Trigger)
		api.GET("/inventory/batches", syncs.ListBatches)
		api.GET("/inventory/batches/:id", syncs.GetBatch)
	}

	return r
}
