package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"siesa-sync/internal/services"
	"siesa-sync/internal/transport/httpdto"
	syncerrors "siesa-sync/pkg/errors"

	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	orders *services.OrderService
}

func NewWebhookHandler(orders *services.OrderService) *WebhookHandler {
	return &WebhookHandler{orders: orders}
}

// OrderCreated receives Shopify's orders/create webhook. Shopify retries
// deliveries, so duplicates are expected and answered 200 like the first
// delivery.
func (h *WebhookHandler) OrderCreated(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable body", "INVALID_REQUEST"))
		return
	}

	var payload struct {
		ID          int64 `json:"id"`
		OrderNumber int64 `json:"order_number"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.ID == 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid order payload", "INVALID_REQUEST"))
		return
	}

	o, err := h.orders.Ingest(c.Request.Context(),
		strconv.FormatInt(payload.ID, 10),
		strconv.FormatInt(payload.OrderNumber, 10),
		body,
	)
	if err != nil {
		if errors.Is(err, syncerrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromOrder(o, h.orders.Snapshot(o))))
}
