package handlers

import (
	"time"

	"github.com/aegisshield/case-dashboard/internal/catalog"
	"github.com/aegisshield/case-dashboard/internal/models"
	"github.com/aegisshield/case-dashboard/internal/query"
)

// ReportView is a case record as the dashboard renders it
type ReportView struct {
	ID            string     `json:"id"`
	Reference     string     `json:"reference"`
	CreatedAt     *time.Time `json:"created_at"`
	Category      string     `json:"category"`
	CategoryLabel string     `json:"category_label"`
	Status        string     `json:"status"`
	StatusLabel   string     `json:"status_label"`
	AssignedTo    string     `json:"assigned_to"`
	IsAnonymous   bool       `json:"is_anonymous"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	City          string     `json:"city"`
	Province      string     `json:"province"`
	Region        string     `json:"region"`
	Description   string     `json:"description"`
	Files         []string   `json:"files"`
	Transmitted   bool       `json:"transmitted"`
}

// ReportPage is one page of a dashboard query
type ReportPage struct {
	Items      []ReportView      `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	Window     []query.PageItem  `json:"window"`
	Sort       models.SortConfig `json:"sort"`
}

// PresentRecord applies the display fallbacks and withholds contact details
// of anonymous submitters.
func PresentRecord(r *models.CaseRecord, variant catalog.Variant) ReportView {
	view := ReportView{
		ID:            r.ID,
		Reference:     r.DisplayReference(),
		Category:      r.Category,
		CategoryLabel: catalog.CategoryLabel(r.Category),
		Status:        r.Status,
		StatusLabel:   catalog.LabelFor(r.Status, variant),
		AssignedTo:    r.AssignedTo,
		IsAnonymous:   r.IsAnonymous,
		Name:          r.DisplayName(),
		City:          r.City,
		Province:      r.Province,
		Region:        r.Region,
		Description:   r.Description,
		Files:         r.Files,
		Transmitted:   catalog.IsTransmittedToAuthority(r),
	}
	if view.Files == nil {
		view.Files = []string{}
	}
	if r.HasCreatedAt() {
		createdAt := r.CreatedAt
		view.CreatedAt = &createdAt
	}
	if !r.IsAnonymous {
		view.Email = r.Email
		view.Phone = r.Phone
	}
	return view
}

// PresentResult converts a query result for rendering
func PresentResult(result query.Result, variant catalog.Variant) ReportPage {
	items := make([]ReportView, len(result.Items))
	for i := range result.Items {
		items[i] = PresentRecord(&result.Items[i], variant)
	}
	return ReportPage{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
		Window:     result.Window,
		Sort:       result.Sort,
	}
}
