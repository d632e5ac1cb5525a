package query

import (
	"strings"
	"time"

	"github.com/aegisshield/case-dashboard/internal/catalog"
	"github.com/aegisshield/case-dashboard/internal/models"
)

// DateLayout is the layout of the date_from and date_to bounds
const DateLayout = "2006-01-02"

type predicate func(r *models.CaseRecord) bool

// Filter narrows records by the tab partition first, then by category, date
// range, free-text search and status. The input slice is not modified.
func Filter(records []models.CaseRecord, criteria models.FilterCriteria, loc *time.Location) []models.CaseRecord {
	if loc == nil {
		loc = time.UTC
	}

	stages := []predicate{
		tabPredicate(criteria.Tab),
		categoryPredicate(criteria.Category),
		datePredicate(criteria.DateFrom, criteria.DateTo, loc),
		searchPredicate(criteria.Search),
		statusPredicate(criteria.Status),
	}

	out := make([]models.CaseRecord, 0, len(records))
	for i := range records {
		if matchAll(&records[i], stages) {
			out = append(out, records[i])
		}
	}
	return out
}

func matchAll(r *models.CaseRecord, stages []predicate) bool {
	for _, stage := range stages {
		if stage != nil && !stage(r) {
			return false
		}
	}
	return true
}

func tabPredicate(tab models.Tab) predicate {
	switch tab {
	case models.TabAnonymous:
		return func(r *models.CaseRecord) bool { return r.IsAnonymous }
	case models.TabNonAnonymous:
		return func(r *models.CaseRecord) bool { return !r.IsAnonymous }
	case models.TabAssigned:
		return func(r *models.CaseRecord) bool { return r.IsAssigned() }
	case models.TabClosed:
		return func(r *models.CaseRecord) bool { return r.Status == catalog.StatusClosed }
	}
	return nil
}

func categoryPredicate(category string) predicate {
	if isUnset(category) {
		return nil
	}
	return func(r *models.CaseRecord) bool { return r.Category == category }
}

func statusPredicate(status string) predicate {
	if isUnset(status) {
		return nil
	}
	return func(r *models.CaseRecord) bool { return r.Status == status }
}

func isUnset(value string) bool {
	return value == "" || value == models.AllFilter
}

// datePredicate keeps records created in [from, to+1day). A bound that does
// not parse matches nothing, as does a record without a creation time.
func datePredicate(from, to string, loc *time.Location) predicate {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil
	}

	var lower, upper time.Time
	if from != "" {
		t, err := time.ParseInLocation(DateLayout, from, loc)
		if err != nil {
			return rejectAll
		}
		lower = t
	}
	if to != "" {
		t, err := time.ParseInLocation(DateLayout, to, loc)
		if err != nil {
			return rejectAll
		}
		upper = t.AddDate(0, 0, 1)
	}

	return func(r *models.CaseRecord) bool {
		if !r.HasCreatedAt() {
			return false
		}
		if !lower.IsZero() && r.CreatedAt.Before(lower) {
			return false
		}
		if !upper.IsZero() && !r.CreatedAt.Before(upper) {
			return false
		}
		return true
	}
}

func rejectAll(*models.CaseRecord) bool { return false }

func searchPredicate(search string) predicate {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return nil
	}
	return func(r *models.CaseRecord) bool {
		if (r.Reference != "" || r.ID != "") && containsFold(r.DisplayReference(), needle) {
			return true
		}
		if containsFold(r.DisplayName(), needle) {
			return true
		}
		// a missing category would otherwise match the "Inconnu" fallback label
		return r.Category != "" && containsFold(catalog.CategoryLabel(r.Category), needle)
	}
}

func containsFold(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}
