package models

import (
	"time"
)

// CaseRecord represents one incident report in the working set
type CaseRecord struct {
	ID          string         `json:"id"`
	Reference   string         `json:"reference"`
	CreatedAt   time.Time      `json:"created_at"`
	Category    string         `json:"category"`
	Status      string         `json:"status"`
	AssignedTo  string         `json:"assigned_to"`
	IsAnonymous bool           `json:"is_anonymous"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	City        string         `json:"city"`
	Province    string         `json:"province"`
	Region      string         `json:"region"`
	Description string         `json:"description"`
	Files       []string       `json:"files"`
	Extra       map[string]any `json:"-"`
}

// AnonymousName is shown in place of the submitter name for anonymous reports
const AnonymousName = "Anonyme"

// Unassigned is the sentinel label some sources use for an empty assignee
const Unassigned = "Non assigné"

// DisplayReference returns the reference, or REF-{id} when the record has none
func (r *CaseRecord) DisplayReference() string {
	if r.Reference != "" {
		return r.Reference
	}
	return "REF-" + r.ID
}

// DisplayName returns the submitter name, or the anonymous sentinel
func (r *CaseRecord) DisplayName() string {
	if r.IsAnonymous || r.Name == "" {
		return AnonymousName
	}
	return r.Name
}

// HasCreatedAt reports whether the creation time was present and parsable
func (r *CaseRecord) HasCreatedAt() bool {
	return !r.CreatedAt.IsZero()
}

// IsAssigned reports whether the record has a real assignee
func (r *CaseRecord) IsAssigned() bool {
	switch r.AssignedTo {
	case "", Unassigned:
		return false
	}
	return true
}

// Category is an entry of the fixed category reference list
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Subtitle string `json:"subtitle"`
	Icon     string `json:"icon"`
}

// Tab selects the base partition of the working set
type Tab string

const (
	TabAll          Tab = "all"
	TabAnonymous    Tab = "anonymous"
	TabNonAnonymous Tab = "non-anonymous"
	TabAssigned     Tab = "assigned"
	TabClosed       Tab = "closed"
)

// AllFilter is the category/status value meaning "no restriction"
const AllFilter = "tous"

// FilterCriteria holds every filter the dashboard can combine
type FilterCriteria struct {
	Tab      Tab    `json:"tab"`
	Category string `json:"category"`
	Search   string `json:"search"`
	Status   string `json:"status"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// Direction is the sort direction
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Flip returns the opposite direction
func (d Direction) Flip() Direction {
	if d == DirectionAsc {
		return DirectionDesc
	}
	return DirectionAsc
}

// SortConfig is the single active sort key and its direction
type SortConfig struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// PaginationState is the page size and the current 1-based page
type PaginationState struct {
	PageSize    int `json:"page_size"`
	CurrentPage int `json:"current_page"`
}
