package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"siesa-sync/internal/services"
	"siesa-sync/internal/transport/httpdto"
	syncerrors "siesa-sync/pkg/errors"
	"siesa-sync/pkg/logger"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	inventory *services.InventoryService
	scheduler *services.SyncScheduler
	log       *logger.Logger
}

func NewSyncHandler(inventory *services.InventoryService, scheduler *services.SyncScheduler, log *logger.Logger) *SyncHandler {
	return &SyncHandler{inventory: inventory, scheduler: scheduler, log: log}
}

// Trigger starts a reconciliation run in the background; the batch is
// observable through the list endpoint as soon as it opens.
func (h *SyncHandler) Trigger(c *gin.Context) {
	// Detached from the request context: an admin closing the browser must
	// not cancel a half-done batch.
	go func() {
		if err := h.scheduler.Trigger(context.Background()); err != nil {
			h.log.Errorf("manual reconciliation trigger failed: %v", err)
		}
	}()
	c.JSON(http.StatusAccepted, httpdto.NewSuccessResponse(gin.H{"triggered": true}))
}

func (h *SyncHandler) ListBatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if limit <= 0 {
		limit = defaultListLimit
	}

	batches, err := h.inventory.ListBatches(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListBatchesResponse{
		Batches: httpdto.FromSyncBatchSlice(batches),
		Total:   len(batches),
	}))
}

func (h *SyncHandler) GetBatch(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid batch id", "INVALID_REQUEST"))
		return
	}

	batch, err := h.inventory.GetBatch(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, syncerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("batch not found", "NOT_FOUND"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}

	items, err := h.inventory.BatchItems(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.BatchDetailResponse{
		Batch: httpdto.FromSyncBatch(batch),
		Items: httpdto.FromSyncItemSlice(items),
	}))
}
