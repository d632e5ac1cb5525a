package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/aegisshield/case-dashboard/internal/config"
	"github.com/aegisshield/case-dashboard/internal/models"
	"github.com/aegisshield/case-dashboard/internal/query"
)

// criteriaFromQuery reads the filter parameters shared by every report route
func criteriaFromQuery(c *gin.Context) models.FilterCriteria {
	return models.FilterCriteria{
		Tab:      models.Tab(c.DefaultQuery("tab", string(models.TabAll))),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
	}
}

// sortFromQuery reads sort and direction. toggle=<key> applies a header click
// on top of them. Keys outside the comparator registry are rejected.
func sortFromQuery(c *gin.Context, fallback models.SortConfig) (models.SortConfig, error) {
	current := fallback
	if key := c.Query("sort"); key != "" {
		if !query.IsSortKey(key) {
			return current, errors.Errorf("unknown sort key %q", key)
		}
		current = models.SortConfig{Key: key, Direction: models.DirectionAsc}
	}
	if direction := c.Query("direction"); direction != "" {
		switch models.Direction(direction) {
		case models.DirectionAsc, models.DirectionDesc:
			current.Direction = models.Direction(direction)
		default:
			return current, errors.Errorf("invalid direction %q", direction)
		}
	}
	if key := c.Query("toggle"); key != "" {
		if !query.IsSortKey(key) {
			return current, errors.Errorf("unknown sort key %q", key)
		}
		current = query.Toggle(current, key)
	}
	return current, nil
}

// paginationFromQuery reads page and page_size, bounding the size by the
// dashboard limits.
func paginationFromQuery(c *gin.Context, limits config.DashboardConfig, defaultSize int) (models.PaginationState, error) {
	state := models.PaginationState{PageSize: defaultSize, CurrentPage: 1}
	if state.PageSize <= 0 {
		state.PageSize = limits.DefaultPageSize
	}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return state, errors.Errorf("invalid page %q", raw)
		}
		state.CurrentPage = page
	}

	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return state, errors.Errorf("invalid page_size %q", raw)
		}
		state.PageSize = size
	}
	state.PageSize = min(state.PageSize, limits.MaxPageSize)
	return state, nil
}
