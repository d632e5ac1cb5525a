package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/catalog"
	"github.com/aegisshield/case-dashboard/internal/middleware"
	"github.com/aegisshield/case-dashboard/internal/models"
	"github.com/aegisshield/case-dashboard/internal/query"
	"github.com/aegisshield/case-dashboard/internal/views"
)

// ViewRequest is the body of a create or update call
type ViewRequest struct {
	Name          string           `json:"name" binding:"required"`
	Tab           models.Tab       `json:"tab"`
	Category      string           `json:"category"`
	Search        string           `json:"search"`
	Status        string           `json:"status"`
	DateFrom      string           `json:"date_from"`
	DateTo        string           `json:"date_to"`
	SortKey       string           `json:"sort_key"`
	SortDirection models.Direction `json:"sort_direction"`
	PageSize      int              `json:"page_size"`
	Period        string           `json:"period"`
}

func (r *ViewRequest) toView(id, userID string) *views.SavedView {
	return &views.SavedView{
		ID:            id,
		UserID:        userID,
		Name:          r.Name,
		Tab:           r.Tab,
		Category:      r.Category,
		Search:        r.Search,
		Status:        r.Status,
		DateFrom:      r.DateFrom,
		DateTo:        r.DateTo,
		SortKey:       r.SortKey,
		SortDirection: r.SortDirection,
		PageSize:      r.PageSize,
		Period:        r.Period,
	}
}

// ViewHandler handles HTTP requests for saved views
type ViewHandler struct {
	repo    views.Repository
	reports *ReportHandler
	logger  *zap.Logger
}

// NewViewHandler creates a new saved-view handler
func NewViewHandler(repo views.Repository, reports *ReportHandler, logger *zap.Logger) *ViewHandler {
	return &ViewHandler{
		repo:    repo,
		reports: reports,
		logger:  logger.Named("view_handler"),
	}
}

// CreateView stores a new view for the caller
func (h *ViewHandler) CreateView(c *gin.Context) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	view := req.toView("", middleware.UserID(c))
	if err := h.repo.Create(c.Request.Context(), view); err != nil {
		h.respondError(c, "Failed to create view", err)
		return
	}

	h.logger.Info("Saved view created", zap.String("id", view.ID))
	c.JSON(http.StatusCreated, view)
}

// ListViews returns the caller's views
func (h *ViewHandler) ListViews(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, "Failed to list views", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": list})
}

// GetView returns one of the caller's views
func (h *ViewHandler) GetView(c *gin.Context) {
	view, err := h.repo.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.respondError(c, "Failed to get view", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateView replaces one of the caller's views
func (h *ViewHandler) UpdateView(c *gin.Context) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	view := req.toView(c.Param("id"), middleware.UserID(c))
	if err := h.repo.Update(c.Request.Context(), view); err != nil {
		h.respondError(c, "Failed to update view", err)
		return
	}

	h.logger.Info("Saved view updated", zap.String("id", view.ID))
	c.JSON(http.StatusOK, view)
}

// DeleteView removes one of the caller's views
func (h *ViewHandler) DeleteView(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		h.respondError(c, "Failed to delete view", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RunView runs the stored query. page, page_size and toggle may be passed to
// page through the result without changing the view.
func (h *ViewHandler) RunView(c *gin.Context) {
	view, err := h.repo.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.respondError(c, "Failed to get view", err)
		return
	}

	sort, err := sortFromQuery(c, view.Sort())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort parameters", "details": err.Error()})
		return
	}
	pagination, err := paginationFromQuery(c, h.reports.limits, view.PageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination parameters", "details": err.Error()})
		return
	}

	page := h.reports.run(query.Request{
		Criteria:   view.Criteria(),
		Sort:       sort,
		Pagination: pagination,
		MaxVisible: h.reports.limits.PageWindow,
	}, catalog.ParseVariant(c.Query("variant")))

	c.JSON(http.StatusOK, gin.H{"view": view, "result": page})
}

// RunViewTimeSeries charts the stored query over the view's period. A period
// query parameter overrides the stored one.
func (h *ViewHandler) RunViewTimeSeries(c *gin.Context) {
	view, err := h.repo.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.respondError(c, "Failed to get view", err)
		return
	}

	chart, err := h.reports.timeSeries(view.Criteria(), c.DefaultQuery("period", view.ChartPeriod()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"view": view, "chart": chart})
}

func (h *ViewHandler) respondError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, views.ErrViewNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "View not found"})
	case errors.Is(err, views.ErrInvalidView):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "details": err.Error()})
	default:
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
