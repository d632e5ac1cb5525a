package analytics

import (
	"sort"
	"time"

	"github.com/aegisshield/case-dashboard/internal/catalog"
	"github.com/aegisshield/case-dashboard/internal/models"
)

// GlobalStats summarises a whole collection
type GlobalStats struct {
	Total       int `json:"total"`
	InProgress  int `json:"in_progress"`
	Transmitted int `json:"transmitted"`
	Closed      int `json:"closed"`
}

// CategoryStats summarises the records of one category
type CategoryStats struct {
	CategoryID string `json:"category_id"`
	Label      string `json:"label"`
	Total      int    `json:"total"`
	InProgress int    `json:"in_progress"`
	Closed     int    `json:"closed"`
}

// StatusCount is the number of records carrying one status code
type StatusCount struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Count int    `json:"count"`
	Known bool   `json:"known"`
}

// ComputeGlobalStats counts every record, whatever its category
func ComputeGlobalStats(records []models.CaseRecord) GlobalStats {
	var stats GlobalStats
	for i := range records {
		r := &records[i]
		stats.Total++
		switch r.Status {
		case catalog.StatusInProgress:
			stats.InProgress++
		case catalog.StatusClosed:
			stats.Closed++
		}
		if catalog.IsTransmittedToAuthority(r) {
			stats.Transmitted++
		}
	}
	return stats
}

// ComputeCategoryStats counts the records whose category is categoryID
func ComputeCategoryStats(records []models.CaseRecord, categoryID string) CategoryStats {
	stats := CategoryStats{CategoryID: categoryID, Label: catalog.CategoryLabel(categoryID)}
	for i := range records {
		r := &records[i]
		if r.Category != categoryID {
			continue
		}
		stats.Total++
		switch r.Status {
		case catalog.StatusInProgress:
			stats.InProgress++
		case catalog.StatusClosed:
			stats.Closed++
		}
	}
	return stats
}

// AllCategoryStats returns the stats of each category, in reference order
func AllCategoryStats(records []models.CaseRecord, categories []models.Category) []CategoryStats {
	out := make([]CategoryStats, 0, len(categories))
	for _, c := range categories {
		out = append(out, ComputeCategoryStats(records, c.ID))
	}
	return out
}

// ThisMonthCount counts records created in now's calendar month
func ThisMonthCount(records []models.CaseRecord, now time.Time) int {
	count := 0
	loc := now.Location()
	for i := range records {
		if !records[i].HasCreatedAt() {
			continue
		}
		t := records[i].CreatedAt.In(loc)
		if t.Year() == now.Year() && t.Month() == now.Month() {
			count++
		}
	}
	return count
}

// StatusBreakdown counts records per status code. Catalog statuses come first
// in workflow order, even when empty; other codes follow in lexical order.
func StatusBreakdown(records []models.CaseRecord) []StatusCount {
	counts := make(map[string]int)
	for i := range records {
		counts[records[i].Status]++
	}

	statuses := catalog.Statuses()
	out := make([]StatusCount, 0, len(statuses)+len(counts))
	for _, s := range statuses {
		out = append(out, StatusCount{Code: s.Code, Label: s.Label, Count: counts[s.Code], Known: true})
	}

	extra := make([]string, 0, len(counts))
	for code := range counts {
		if !catalog.IsKnownStatus(code) {
			extra = append(extra, code)
		}
	}
	sort.Strings(extra)
	for _, code := range extra {
		out = append(out, StatusCount{Code: code, Label: catalog.Label(code), Count: counts[code]})
	}
	return out
}
