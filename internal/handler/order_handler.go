package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"siesa-sync/internal/domain/order"
	"siesa-sync/internal/services"
	"siesa-sync/internal/transport/httpdto"
	syncerrors "siesa-sync/pkg/errors"

	"github.com/gin-gonic/gin"
)

const defaultListLimit = 100

type OrderHandler struct {
	orders           *services.OrderService
	stalledThreshold time.Duration
}

func NewOrderHandler(orders *services.OrderService, stalledThreshold time.Duration) *OrderHandler {
	return &OrderHandler{orders: orders, stalledThreshold: stalledThreshold}
}

func (h *OrderHandler) List(c *gin.Context) {
	status := order.Status(c.DefaultQuery("status", string(order.StatusPending)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if limit <= 0 {
		limit = defaultListLimit
	}

	items, err := h.orders.ListOrders(c.Request.Context(), status, limit)
	if err != nil {
		if errors.Is(err, syncerrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}

	resp := make([]httpdto.OrderResponse, 0, len(items))
	for _, o := range items {
		resp = append(resp, httpdto.FromOrder(o, h.orders.Snapshot(o)))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListOrdersResponse{Orders: resp, Total: len(resp)}))
}

func (h *OrderHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid order id", "INVALID_REQUEST"))
		return
	}

	o, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, syncerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("order not found", "NOT_FOUND"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromOrder(o, h.orders.Snapshot(o))))
}

func (h *OrderHandler) Logs(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid order id", "INVALID_REQUEST"))
		return
	}

	logs, err := h.orders.OrderLogs(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, syncerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("order not found", "NOT_FOUND"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromOrderLogSlice(logs)))
}

// Reset requeues an exhausted order: attempts back to zero, status back to
// pending. Only failed orders qualify.
func (h *OrderHandler) Reset(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid order id", "INVALID_REQUEST"))
		return
	}

	o, err := h.orders.Reset(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, syncerrors.ErrNotFound):
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("order not found", "NOT_FOUND"))
		case errors.Is(err, syncerrors.ErrInvalidTransition):
			c.JSON(http.StatusConflict, httpdto.NewErrorResponse("only failed orders can be reset", "INVALID_TRANSITION"))
		default:
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		}
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromOrder(o, h.orders.Snapshot(o))))
}

// Backfill re-fetches storefront orders created since the cutoff and ingests
// the ones no webhook delivered. Defaults to the last 24 hours.
func (h *OrderHandler) Backfill(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("since must be RFC3339", "INVALID_REQUEST"))
			return
		}
		since = parsed
	}

	created, skipped, err := h.orders.Backfill(c.Request.Context(), since)
	if err != nil {
		c.JSON(http.StatusBadGateway, httpdto.NewErrorResponse(err.Error(), "STOREFRONT_UNAVAILABLE"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.BackfillResponse{Created: created, Skipped: skipped}))
}

func (h *OrderHandler) RequeueStalled(c *gin.Context) {
	n, err := h.orders.RequeueStalled(c.Request.Context(), h.stalledThreshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.RequeueStalledResponse{Requeued: n}))
}
