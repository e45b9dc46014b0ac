package domain

import (
	"time"
)

// SearchKind identifies the entity a search hit refers to.
type SearchKind string

const (
	SearchProject  SearchKind = "project"
	SearchReport   SearchKind = "report"
	SearchMaterial SearchKind = "material"
)

// SearchResult is one global search hit.
type SearchResult struct {
	ID          string     `json:"id"`
	Kind        SearchKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Notification announces a submitted report.
type Notification struct {
	ReportID    string    `json:"report_id"`
	ProjectName string    `json:"project_name"`
	Stage       string    `json:"stage,omitempty"`
	Date        time.Time `json:"report_date"`
	Summary     string    `json:"summary"`
}
