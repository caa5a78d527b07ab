package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/finsuite/ledger_engine/internal/apperrors"
	"github.com/finsuite/ledger_engine/internal/core/domain"
	portssvc "github.com/finsuite/ledger_engine/internal/core/ports/services"
	"github.com/finsuite/ledger_engine/internal/core/services"
	"github.com/finsuite/ledger_engine/internal/dto"
	"github.com/finsuite/ledger_engine/internal/middleware"
)

// batchHandler handles HTTP requests for posting batches.
type batchHandler struct {
	batchService   portssvc.BatchSvcFacade
	postingService portssvc.PostingSvcFacade
}

func newBatchHandler(bs portssvc.BatchSvcFacade, ps portssvc.PostingSvcFacade) *batchHandler {
	return &batchHandler{batchService: bs, postingService: ps}
}

// registerBatchRoutes registers routes related to posting batches.
func registerBatchRoutes(rg *gin.RouterGroup, bs portssvc.BatchSvcFacade, ps portssvc.PostingSvcFacade) {
	h := newBatchHandler(bs, ps)

	batches := rg.Group("/batches")
	{
		batches.POST("", h.createBatch)
		batches.GET("", h.listBatches)
		batches.GET("/:batchID", h.getBatch)
		batches.POST("/:batchID/entries", h.attachEntry)
		batches.POST("/:batchID/submit", h.submitBatch)
		batches.POST("/:batchID/approve", h.approveBatch)
		batches.POST("/:batchID/reject", h.rejectBatch)
		batches.POST("/:batchID/post", h.postBatch)
	}
}

// batchErrorStatus maps batch lifecycle errors onto HTTP statuses.
func batchErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrBatchNotFound),
		errors.Is(err, services.ErrEntryNotFound),
		errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEntryNotApprovedForBatch),
		errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBatchNotOpen),
		errors.Is(err, domain.ErrBatchNotSubmitted),
		errors.Is(err, domain.ErrBatchNotApproved),
		errors.Is(err, domain.ErrBatchEmpty),
		errors.Is(err, domain.ErrPeriodClosed),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *batchHandler) createBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createBatch", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	batch, err := h.batchService.CreateBatch(c.Request.Context(), req, userID)
	if err != nil {
		logger.Error("Failed to create batch", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToBatchResponse(batch))
}

func (h *batchHandler) getBatch(c *gin.Context) {
	batch, err := h.batchService.GetBatchByID(c.Request.Context(), c.Param("batchID"))
	if err != nil {
		c.JSON(batchErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToBatchResponse(batch))
}

func (h *batchHandler) listBatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	batches, err := h.batchService.ListBatches(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list batches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": dto.ToBatchResponses(batches)})
}

func (h *batchHandler) attachEntry(c *gin.Context) {
	var req dto.AttachEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	batch, err := h.batchService.AttachEntry(c.Request.Context(), c.Param("batchID"), req.EntryID, userID)
	if err != nil {
		c.JSON(batchErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToBatchResponse(batch))
}

func (h *batchHandler) submitBatch(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	batch, err := h.batchService.SubmitBatch(c.Request.Context(), c.Param("batchID"), userID)
	if err != nil {
		c.JSON(batchErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToBatchResponse(batch))
}

func (h *batchHandler) approveBatch(c *gin.Context) {
	approverID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	batch, err := h.batchService.ApproveBatch(c.Request.Context(), c.Param("batchID"), approverID)
	if err != nil {
		c.JSON(batchErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToBatchResponse(batch))
}

func (h *batchHandler) rejectBatch(c *gin.Context) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	approverID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	batch, err := h.batchService.RejectBatch(c.Request.Context(), c.Param("batchID"), approverID, req.Reason)
	if err != nil {
		c.JSON(batchErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToBatchResponse(batch))
}

func (h *batchHandler) postBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	receipts, err := h.postingService.PostBatch(c.Request.Context(), c.Param("batchID"), req.IdempotencyKey, userID)
	if err != nil {
		var aborted *services.BatchPostingAbortedError
		if errors.As(err, &aborted) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":         aborted.Error(),
				"failedEntryID": aborted.FailedEntryID,
			})
			return
		}
		status := batchErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to post batch", slog.String("error", err.Error()), slog.String("batch_id", c.Param("batchID")))
			c.JSON(status, gin.H{"error": "Failed to post batch"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipts": dto.ToReceiptResponses(receipts)})
}
