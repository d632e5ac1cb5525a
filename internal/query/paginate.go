package query

import (
	"encoding/json"

	"github.com/aegisshield/case-dashboard/internal/models"
)

// DefaultMaxVisible is the number of page links shown around the current page
const DefaultMaxVisible = 5

// EllipsisMarker is how a gap in the page window is rendered
const EllipsisMarker = "…"

// Page is one slice of a collection
type Page struct {
	Items      []models.CaseRecord `json:"items"`
	TotalPages int                 `json:"total_pages"`
}

// TotalPages returns max(1, ceil(count/pageSize))
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 1
	}
	pages := count / pageSize
	if count%pageSize != 0 {
		pages++
	}
	return pages
}

// ClampPage brings page into [1, totalPages]
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns the records of the 1-based currentPage. It does not clamp:
// a page outside the collection yields an empty slice.
func Paginate(records []models.CaseRecord, pageSize, currentPage int) Page {
	page := Page{
		Items:      []models.CaseRecord{},
		TotalPages: TotalPages(len(records), pageSize),
	}
	if pageSize <= 0 || currentPage < 1 || len(records) == 0 || currentPage > page.TotalPages {
		return page
	}

	// currentPage <= TotalPages keeps start below len(records)
	start := (currentPage - 1) * pageSize
	end := len(records)
	if pageSize < end-start {
		end = start + pageSize
	}

	page.Items = make([]models.CaseRecord, end-start)
	copy(page.Items, records[start:end])
	return page
}

// PageItem is either a page number or an ellipsis
type PageItem struct {
	Number   int
	Ellipsis bool
}

// MarshalJSON renders a page number as a JSON number and an ellipsis as "…"
func (p PageItem) MarshalJSON() ([]byte, error) {
	if p.Ellipsis {
		return json.Marshal(EllipsisMarker)
	}
	return json.Marshal(p.Number)
}

func pageNumber(n int) PageItem { return PageItem{Number: n} }

var ellipsis = PageItem{Ellipsis: true}

// PageWindow returns the page links for navigation: the first and last page
// are always present, with at most one ellipsis on each side of the pages
// around current.
func PageWindow(current, total, maxVisible int) []PageItem {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	if total < 1 {
		total = 1
	}

	if total <= maxVisible+2 {
		items := make([]PageItem, 0, total)
		for i := 1; i <= total; i++ {
			items = append(items, pageNumber(i))
		}
		return items
	}

	start := max(2, current-2)
	end := min(total-1, current+2)
	if current <= 3 {
		end = maxVisible
	}
	if current >= total-2 {
		start = total - maxVisible + 1
	}

	items := []PageItem{pageNumber(1)}
	if start > 2 {
		items = append(items, ellipsis)
	}
	for i := start; i <= end; i++ {
		items = append(items, pageNumber(i))
	}
	if end < total-1 {
		items = append(items, ellipsis)
	}
	return append(items, pageNumber(total))
}
