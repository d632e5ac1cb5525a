package query

import (
	"time"

	"github.com/aegisshield/case-dashboard/internal/models"
)

// Request is one dashboard interaction: what to show and which page of it
type Request struct {
	Criteria   models.FilterCriteria
	Sort       models.SortConfig
	Pagination models.PaginationState
	MaxVisible int
}

// Result is the page to render along with its navigation window
type Result struct {
	Items      []models.CaseRecord `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
	Window     []PageItem          `json:"window"`
	Sort       models.SortConfig   `json:"sort"`
}

// Run filters, sorts and paginates records. The requested page is clamped to
// the filtered collection so a narrowed filter never lands on an empty page.
func Run(records []models.CaseRecord, req Request, loc *time.Location) Result {
	filtered := Filter(records, req.Criteria, loc)
	sorted := Sort(filtered, req.Sort)

	pageSize := req.Pagination.PageSize
	totalPages := TotalPages(len(sorted), pageSize)
	current := ClampPage(req.Pagination.CurrentPage, totalPages)
	page := Paginate(sorted, pageSize, current)

	return Result{
		Items:      page.Items,
		Total:      len(sorted),
		Page:       current,
		PageSize:   pageSize,
		TotalPages: page.TotalPages,
		Window:     PageWindow(current, page.TotalPages, req.MaxVisible),
		Sort:       req.Sort,
	}
}
