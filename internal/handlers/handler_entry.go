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

// entryHandler handles HTTP requests for journal entries, including posting
// and reversal.
type entryHandler struct {
	entryService    portssvc.EntrySvcFacade
	postingService  portssvc.PostingSvcFacade
	reversalService portssvc.ReversalSvcFacade
}

func newEntryHandler(es portssvc.EntrySvcFacade, ps portssvc.PostingSvcFacade, rs portssvc.ReversalSvcFacade) *entryHandler {
	return &entryHandler{entryService: es, postingService: ps, reversalService: rs}
}

// registerEntryRoutes registers routes related to journal entries.
func registerEntryRoutes(rg *gin.RouterGroup, es portssvc.EntrySvcFacade, ps portssvc.PostingSvcFacade, rs portssvc.ReversalSvcFacade) {
	h := newEntryHandler(es, ps, rs)

	entries := rg.Group("/entries")
	{
		entries.POST("", h.createEntry)
		entries.GET("", h.listEntries)
		entries.GET("/:entryID", h.getEntry)
		entries.POST("/:entryID/lines", h.addLine)
		entries.DELETE("/:entryID/lines/:lineID", h.removeLine)
		entries.POST("/:entryID/submit", h.submitEntry)
		entries.POST("/:entryID/approve", h.approveEntry)
		entries.POST("/:entryID/reject", h.rejectEntry)
		entries.POST("/:entryID/post", h.postEntry)
		entries.POST("/:entryID/reverse", h.reverseEntry)
	}
}

// entryErrorStatus maps entry lifecycle errors onto HTTP statuses.
func entryErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrEntryNotFound),
		errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrPeriodNotFound),
		errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEntryUnbalanced),
		errors.Is(err, services.ErrInvalidLine),
		errors.Is(err, services.ErrEntryMinLines),
		errors.Is(err, services.ErrAccountInactive),
		errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEntryNotEditable),
		errors.Is(err, domain.ErrEntryNotSubmitted),
		errors.Is(err, domain.ErrEntryNotApproved),
		errors.Is(err, domain.ErrEntryNotPosted),
		errors.Is(err, domain.ErrEntryAlreadyReversed),
		errors.Is(err, domain.ErrPeriodClosed),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLineNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *entryHandler) createEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entryService.CreateEntry(c.Request.Context(), req, userID)
	if err != nil {
		status := entryErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to create entry", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to create entry"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.ToEntryResponse(entry))
}

func (h *entryHandler) getEntry(c *gin.Context) {
	entry, err := h.entryService.GetEntryByID(c.Request.Context(), c.Param("entryID"))
	if err != nil {
		c.JSON(entryErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

func (h *entryHandler) listEntries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.entryService.ListEntries(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": dto.ToEntryResponses(entries)})
}

func (h *entryHandler) addLine(c *gin.Context) {
	var req dto.CreateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entryService.AddLine(c.Request.Context(), c.Param("entryID"), req, userID)
	if err != nil {
		c.JSON(entryErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

func (h *entryHandler) removeLine(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entryService.RemoveLine(c.Request.Context(), c.Param("entryID"), c.Param("lineID"), userID)
	if err != nil {
		c.JSON(entryErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

func (h *entryHandler) submitEntry(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entryService.SubmitEntry(c.Request.Context(), c.Param("entryID"), userID)
	if err != nil {
		c.JSON(entryErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

func (h *entryHandler) approveEntry(c *gin.Context) {
	approverID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entryService.ApproveEntry(c.Request.Context(), c.Param("entryID"), approverID)
	if err != nil {
		c.JSON(entryErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

func (h *entryHandler) rejectEntry(c *gin.Context) {
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

	entry, err := h.entryService.RejectEntry(c.Request.Context(), c.Param("entryID"), approverID, req.Reason)
	if err != nil {
		c.JSON(entryErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

func (h *entryHandler) postEntry(c *gin.Context) {
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

	receipt, err := h.postingService.PostEntry(c.Request.Context(), c.Param("entryID"), req.IdempotencyKey, userID)
	if err != nil {
		status := entryErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to post entry", slog.String("error", err.Error()), slog.String("entry_id", c.Param("entryID")))
			c.JSON(status, gin.H{"error": "Failed to post entry"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ToReceiptResponse(receipt))
}

func (h *entryHandler) reverseEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.ReverseEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	reversing, err := h.reversalService.ReverseEntry(c.Request.Context(), c.Param("entryID"), req.ReversalDate, req.Reason, userID)
	if err != nil {
		status := entryErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to reverse entry", slog.String("error", err.Error()), slog.String("entry_id", c.Param("entryID")))
			c.JSON(status, gin.H{"error": "Failed to reverse entry"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.ToEntryResponse(reversing))
}
