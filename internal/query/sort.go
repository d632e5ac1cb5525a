package query

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aegisshield/case-dashboard/internal/catalog"
	"github.com/aegisshield/case-dashboard/internal/models"
)

// Sort keys accepted by Sort
const (
	SortByCreatedAt   = "created_at"
	SortByID          = "id"
	SortByReference   = "reference"
	SortByDescription = "description"
	SortByCategory    = "category"
	SortByStatus      = "status"
	SortByName        = "name"
	SortByCity        = "city"
	SortByProvince    = "province"
	SortByRegion      = "region"
)

// DefaultSort orders the newest reports first
var DefaultSort = models.SortConfig{Key: SortByCreatedAt, Direction: models.DirectionDesc}

type comparator func(a, b *models.CaseRecord) int

var comparators = map[string]comparator{
	SortByCreatedAt:   compareDates(func(r *models.CaseRecord) time.Time { return r.CreatedAt }),
	SortByID:          compareNumbers(func(r *models.CaseRecord) string { return r.ID }),
	SortByReference:   compareStrings(func(r *models.CaseRecord) string { return r.DisplayReference() }),
	SortByDescription: compareStrings(func(r *models.CaseRecord) string { return r.Description }),
	SortByCategory:    compareStrings(func(r *models.CaseRecord) string { return catalog.CategoryLabel(r.Category) }),
	SortByStatus:      compareStrings(func(r *models.CaseRecord) string { return catalog.Label(r.Status) }),
	SortByName:        compareStrings(func(r *models.CaseRecord) string { return r.DisplayName() }),
	SortByCity:        compareStrings(func(r *models.CaseRecord) string { return r.City }),
	SortByProvince:    compareStrings(func(r *models.CaseRecord) string { return r.Province }),
	SortByRegion:      compareStrings(func(r *models.CaseRecord) string { return r.Region }),
}

// IsSortKey reports whether key is a registered sort key
func IsSortKey(key string) bool {
	_, ok := comparators[key]
	return ok
}

// Sort returns a sorted copy of records. Records that compare equal keep their
// input order in both directions. An unknown key returns an unsorted copy.
func Sort(records []models.CaseRecord, config models.SortConfig) []models.CaseRecord {
	out := make([]models.CaseRecord, len(records))
	copy(out, records)

	cmp, ok := comparators[config.Key]
	if !ok {
		return out
	}

	sign := 1
	if config.Direction == models.DirectionDesc {
		sign = -1
	}

	sort.SliceStable(out, func(i, j int) bool {
		return sign*cmp(&out[i], &out[j]) < 0
	})
	return out
}

// Toggle returns the sort config after a click on key: the active key flips
// direction, any other key starts ascending.
func Toggle(current models.SortConfig, key string) models.SortConfig {
	if current.Key == key {
		direction := current.Direction
		if direction == "" {
			direction = models.DirectionAsc
		}
		return models.SortConfig{Key: key, Direction: direction.Flip()}
	}
	return models.SortConfig{Key: key, Direction: models.DirectionAsc}
}

// epoch stands in for missing or unparsable creation times
var epoch = time.Unix(0, 0).UTC()

func compareDates(value func(*models.CaseRecord) time.Time) comparator {
	return func(a, b *models.CaseRecord) int {
		ta, tb := value(a), value(b)
		if ta.IsZero() {
			ta = epoch
		}
		if tb.IsZero() {
			tb = epoch
		}
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		}
		return 0
	}
}

func compareStrings(value func(*models.CaseRecord) string) comparator {
	return func(a, b *models.CaseRecord) int {
		return strings.Compare(strings.ToLower(value(a)), strings.ToLower(value(b)))
	}
}

func compareNumbers(value func(*models.CaseRecord) string) comparator {
	return func(a, b *models.CaseRecord) int {
		na, nb := numeric(value(a)), numeric(value(b))
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
}

// numeric parses an identifier; non-numeric values sort lowest
func numeric(value string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(n) {
		return math.Inf(-1)
	}
	return n
}
