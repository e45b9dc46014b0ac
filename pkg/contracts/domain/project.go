package domain

import (
	"time"
)

// ProjectStatus is the lifecycle state of a construction project.
type ProjectStatus string

const (
	ProjectNotStarted ProjectStatus = "Not Started"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectCompleted  ProjectStatus = "Completed"
	ProjectOnHold     ProjectStatus = "On Hold"
)

// Project is a construction project with a declared budget.
type Project struct {
	ID          string        `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Description string        `json:"description,omitempty" db:"description"`
	StartDate   *time.Time    `json:"start_date,omitempty" db:"start_date"`
	TotalCost   float64       `json:"total_cost" db:"total_cost"`
	Status      ProjectStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// ProjectInput carries the writable fields of a project.
type ProjectInput struct {
	Name        string        `json:"name" validate:"required,min=3,max=100"`
	Description string        `json:"description" validate:"max=500"`
	StartDate   *time.Time    `json:"start_date,omitempty"`
	TotalCost   float64       `json:"total_cost" validate:"gte=0"`
	Status      ProjectStatus `json:"status" validate:"omitempty,oneof='Not Started' 'In Progress' 'Completed' 'On Hold'"`
}

// CostCategory classifies a day's spending.
type CostCategory string

const (
	CostMaterial  CostCategory = "Material"
	CostLabor     CostCategory = "Labor"
	CostEquipment CostCategory = "Equipment"
	CostTransport CostCategory = "Transport"
	CostMisc      CostCategory = "Misc"
)

// CostCategories lists every category in display order.
var CostCategories = []CostCategory{CostMaterial, CostLabor, CostEquipment, CostTransport, CostMisc}

// ParseCostCategory matches a category name, falling back to Misc.
func ParseCostCategory(s string) CostCategory {
	for _, c := range CostCategories {
		if string(c) == s {
			return c
		}
	}
	return CostMisc
}

// CostEntry is one categorized amount spent against a report.
type CostEntry struct {
	ReportID string       `json:"report_id" db:"dpr_id"`
	Category CostCategory `json:"category" db:"cost_category"`
	Amount   float64      `json:"amount" db:"amount_spent_today"`
}

// PhotoRef points at a site photo attached to a report.
type PhotoRef struct {
	ID          string `json:"id" db:"id"`
	ReportID    string `json:"daily_report_id" db:"daily_report_id"`
	FileName    string `json:"file_name" db:"file_name"`
	PublicURL   string `json:"public_url" db:"public_url"`
	StoragePath string `json:"storage_path,omitempty" db:"storage_path"`
	Description string `json:"description,omitempty" db:"description"`
}
