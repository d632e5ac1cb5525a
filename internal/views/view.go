package views

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aegisshield/case-dashboard/internal/analytics"
	"github.com/aegisshield/case-dashboard/internal/models"
	"github.com/aegisshield/case-dashboard/internal/query"
)

var (
	// ErrViewNotFound is returned when a view does not exist for the user
	ErrViewNotFound = errors.New("saved view not found")
	// ErrInvalidView wraps every validation failure
	ErrInvalidView = errors.New("invalid saved view")
)

// SavedView is a named dashboard state a user can come back to
type SavedView struct {
	ID            string           `json:"id" gorm:"primarykey"`
	UserID        string           `json:"user_id" gorm:"not null;index"`
	Name          string           `json:"name" gorm:"not null"`
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
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TableName overrides the gorm default
func (SavedView) TableName() string {
	return "saved_views"
}

// Validate checks the fields a query would otherwise silently ignore
func (v *SavedView) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return errors.Wrap(ErrInvalidView, "name is required")
	}
	switch v.Tab {
	case "", models.TabAll, models.TabAnonymous, models.TabNonAnonymous, models.TabAssigned, models.TabClosed:
	default:
		return errors.Wrapf(ErrInvalidView, "unknown tab %q", v.Tab)
	}
	if v.SortKey != "" && !query.IsSortKey(v.SortKey) {
		return errors.Wrapf(ErrInvalidView, "unknown sort key %q", v.SortKey)
	}
	switch v.SortDirection {
	case "", models.DirectionAsc, models.DirectionDesc:
	default:
		return errors.Wrapf(ErrInvalidView, "unknown sort direction %q", v.SortDirection)
	}
	if v.PageSize < 0 {
		return errors.Wrap(ErrInvalidView, "page size must not be negative")
	}
	for _, d := range []string{v.DateFrom, v.DateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(query.DateLayout, d); err != nil {
			return errors.Wrapf(ErrInvalidView, "date %q is not YYYY-MM-DD", d)
		}
	}
	if v.Period != "" {
		if _, err := analytics.ParsePeriod(v.Period); err != nil {
			return errors.Wrap(ErrInvalidView, err.Error())
		}
	}
	return nil
}

// Criteria returns the filter the view stands for
func (v *SavedView) Criteria() models.FilterCriteria {
	return models.FilterCriteria{
		Tab:      v.Tab,
		Category: v.Category,
		Search:   v.Search,
		Status:   v.Status,
		DateFrom: v.DateFrom,
		DateTo:   v.DateTo,
	}
}

// ChartPeriod returns the stored chart window, or the dashboard default
func (v *SavedView) ChartPeriod() string {
	if v.Period == "" {
		return analytics.DefaultPeriod
	}
	return v.Period
}

// Sort returns the stored sort, or the dashboard default when none is set
func (v *SavedView) Sort() models.SortConfig {
	if v.SortKey == "" {
		return query.DefaultSort
	}
	direction := v.SortDirection
	if direction == "" {
		direction = models.DirectionAsc
	}
	return models.SortConfig{Key: v.SortKey, Direction: direction}
}
