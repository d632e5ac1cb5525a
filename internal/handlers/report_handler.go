package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/analytics"
	"github.com/aegisshield/case-dashboard/internal/catalog"
	"github.com/aegisshield/case-dashboard/internal/config"
	"github.com/aegisshield/case-dashboard/internal/models"
	"github.com/aegisshield/case-dashboard/internal/query"
	"github.com/aegisshield/case-dashboard/internal/workingset"
)

// WorkingSet is the record collection the dashboard queries
type WorkingSet interface {
	Snapshot() workingset.Snapshot
	Refresh(ctx context.Context, origin string, force bool) (workingset.Snapshot, error)
}

// QueryRecorder receives per-query metrics
type QueryRecorder interface {
	RecordQuery(matched int)
}

// ReportHandler handles HTTP requests for case reports
type ReportHandler struct {
	records  WorkingSet
	limits   config.DashboardConfig
	loc      *time.Location
	recorder QueryRecorder
	now      func() time.Time
	logger   *zap.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(records WorkingSet, limits config.DashboardConfig, loc *time.Location, recorder QueryRecorder, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		records:  records,
		limits:   limits,
		loc:      loc,
		recorder: recorder,
		now:      time.Now,
		logger:   logger.Named("report_handler"),
	}
}

// ListReports returns one filtered, sorted page of reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	sort, err := sortFromQuery(c, query.DefaultSort)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort parameters", "details": err.Error()})
		return
	}
	pagination, err := paginationFromQuery(c, h.limits, h.limits.DefaultPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination parameters", "details": err.Error()})
		return
	}

	page := h.run(query.Request{
		Criteria:   criteriaFromQuery(c),
		Sort:       sort,
		Pagination: pagination,
		MaxVisible: h.limits.PageWindow,
	}, catalog.ParseVariant(c.Query("variant")))

	c.JSON(http.StatusOK, page)
}

func (h *ReportHandler) run(req query.Request, variant catalog.Variant) ReportPage {
	result := query.Run(h.records.Snapshot().Records, req, h.loc)
	if h.recorder != nil {
		h.recorder.RecordQuery(result.Total)
	}
	return PresentResult(result, variant)
}

// GetReport returns a single report by ID
func (h *ReportHandler) GetReport(c *gin.Context) {
	id := c.Param("id")
	records := h.records.Snapshot().Records
	for i := range records {
		if records[i].ID == id {
			c.JSON(http.StatusOK, PresentRecord(&records[i], catalog.ParseVariant(c.Query("variant"))))
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
}

// GetStats returns the summary counters over the filtered reports
func (h *ReportHandler) GetStats(c *gin.Context) {
	filtered := query.Filter(h.records.Snapshot().Records, criteriaFromQuery(c), h.loc)

	c.JSON(http.StatusOK, gin.H{
		"global":     analytics.ComputeGlobalStats(filtered),
		"categories": analytics.AllCategoryStats(filtered, catalog.Categories()),
		"statuses":   analytics.StatusBreakdown(filtered),
		"this_month": analytics.ThisMonthCount(filtered, h.now().In(h.loc)),
	})
}

// GetTimeSeries returns per-category counts bucketed over the requested period
func (h *ReportHandler) GetTimeSeries(c *gin.Context) {
	chart, err := h.timeSeries(criteriaFromQuery(c), c.DefaultQuery("period", analytics.DefaultPeriod))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chart)
}

func (h *ReportHandler) timeSeries(criteria models.FilterCriteria, period string) (analytics.ChartData, error) {
	granularity, err := analytics.ParsePeriod(period)
	if err != nil {
		return analytics.ChartData{}, err
	}
	filtered := query.Filter(h.records.Snapshot().Records, criteria, h.loc)
	return analytics.Buckets(filtered, catalog.Categories(), granularity, h.now().In(h.loc)), nil
}

// Refresh forces a reload of the working set from the backend
func (h *ReportHandler) Refresh(c *gin.Context) {
	snapshot, err := h.records.Refresh(c.Request.Context(), workingset.OriginManual, true)
	if err != nil {
		h.logger.Error("Manual refresh failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh reports", "details": err.Error()})
		return
	}

	h.logger.Info("Working set refreshed on request", zap.Int("records", len(snapshot.Records)))
	c.JSON(http.StatusOK, gin.H{
		"records":    len(snapshot.Records),
		"fetched_at": snapshot.FetchedAt,
	})
}

// ListCategories returns the category reference list
func (h *ReportHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": catalog.Categories()})
}

// ListStatuses returns the status table, with variant labels when requested
func (h *ReportHandler) ListStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"statuses": catalog.StatusesFor(catalog.ParseVariant(c.Query("variant")))})
}
