package middleware

import (
	"bytes"
	"io"
	"net/http"

	"siesa-sync/internal/clients/shopify"
	"siesa-sync/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// WebhookHMACMiddleware authenticates Shopify webhook deliveries by their
// HMAC header. The body is restored for the handler after reading.
func WebhookHMACMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable body", "INVALID_REQUEST"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		header := c.GetHeader("X-Shopify-Hmac-Sha256")
		if !shopify.VerifyWebhookHMAC(secret, body, header) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid webhook signature", "UNAUTHORIZED"))
			return
		}
		c.Next()
	}
}
