package domain

import (
	"time"
)

// MaterialCategories is the fixed list of material categories.
var MaterialCategories = []string{
	"Cement & Concrete",
	"Steel & Metal",
	"Bricks & Blocks",
	"Sand & Aggregates",
	"Wood & Timber",
	"Electrical",
	"Plumbing",
	"Paint & Finishes",
	"Tiles & Flooring",
	"Glass & Windows",
	"Roofing",
	"Hardware & Fasteners",
	"Tools & Equipment",
	"Other",
}

// MaterialUnits is the fixed list of stock units.
var MaterialUnits = []string{
	"kg", "tons", "pieces", "cubic meters", "square meters",
	"liters", "bags", "rolls", "sheets", "meters",
}

// Material is an inventory item.
type Material struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Description     string    `json:"description,omitempty" db:"description"`
	Category        string    `json:"category" db:"category"`
	Unit            string    `json:"unit" db:"unit"`
	CostPerUnit     float64   `json:"cost_per_unit" db:"cost_per_unit"`
	SupplierName    string    `json:"supplier_name,omitempty" db:"supplier_name"`
	SupplierContact string    `json:"supplier_contact,omitempty" db:"supplier_contact"`
	MinStockLevel   float64   `json:"min_stock_level" db:"min_stock_level"`
	CurrentStock    float64   `json:"current_stock" db:"current_stock"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// LowStock reports whether the item is at or below its minimum level.
func (m Material) LowStock() bool {
	return m.CurrentStock <= m.MinStockLevel
}

// MaterialInput carries the writable fields of a material.
type MaterialInput struct {
	Name            string  `json:"name" validate:"required,min=2,max=100"`
	Description     string  `json:"description" validate:"max=500"`
	Category        string  `json:"category" validate:"required,material_category"`
	Unit            string  `json:"unit" validate:"required,material_unit"`
	CostPerUnit     float64 `json:"cost_per_unit" validate:"gte=0"`
	SupplierName    string  `json:"supplier_name" validate:"max=100"`
	SupplierContact string  `json:"supplier_contact" validate:"max=100"`
	MinStockLevel   float64 `json:"min_stock_level" validate:"gte=0"`
	CurrentStock    float64 `json:"current_stock" validate:"gte=0"`
}

// MaterialPurchase records stock bought for a project.
type MaterialPurchase struct {
	ID           string    `json:"id" db:"id"`
	MaterialID   string    `json:"material_id" db:"material_id"`
	ProjectID    *string   `json:"project_id,omitempty" db:"project_id"`
	Quantity     float64   `json:"quantity" db:"quantity"`
	CostPerUnit  float64   `json:"cost_per_unit" db:"cost_per_unit"`
	TotalCost    float64   `json:"total_cost" db:"total_cost"`
	SupplierName string    `json:"supplier_name,omitempty" db:"supplier_name"`
	PurchaseDate time.Time `json:"purchase_date" db:"purchase_date"`
}

// PurchaseInput is a purchase submission.
type PurchaseInput struct {
	MaterialID   string    `json:"material_id" validate:"required"`
	ProjectID    *string   `json:"project_id,omitempty"`
	Quantity     float64   `json:"quantity" validate:"gt=0"`
	CostPerUnit  float64   `json:"cost_per_unit" validate:"gte=0"`
	SupplierName string    `json:"supplier_name" validate:"max=100"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// MaterialUsage records stock consumed on site.
type MaterialUsage struct {
	ID            string    `json:"id" db:"id"`
	MaterialID    string    `json:"material_id" db:"material_id"`
	ProjectID     *string   `json:"project_id,omitempty" db:"project_id"`
	DailyReportID *string   `json:"daily_report_id,omitempty" db:"daily_report_id"`
	Quantity      float64   `json:"quantity_used" db:"quantity_used"`
	UsageDate     time.Time `json:"usage_date" db:"usage_date"`
	Notes         string    `json:"notes,omitempty" db:"notes"`
}

// UsageInput is a usage submission.
type UsageInput struct {
	MaterialID    string    `json:"material_id" validate:"required"`
	ProjectID     *string   `json:"project_id,omitempty"`
	DailyReportID *string   `json:"daily_report_id,omitempty"`
	Quantity      float64   `json:"quantity_used" validate:"gt=0"`
	UsageDate     time.Time `json:"usage_date"`
	Notes         string    `json:"notes" validate:"max=500"`
}

// InventorySummary condenses the inventory for the materials dashboard.
type InventorySummary struct {
	TotalItems     int            `json:"total_items"`
	LowStock       []Material     `json:"low_stock"`
	InventoryValue float64        `json:"inventory_value"`
	PurchasesTotal float64        `json:"purchases_total"`
	CategoryCounts map[string]int `json:"category_counts"`
}
