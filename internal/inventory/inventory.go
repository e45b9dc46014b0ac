// Package inventory computes materials inventory figures and checks stock
// movements before they are stored.
package inventory

import (
	"errors"
	"fmt"
	"math"

	"buildtrack/pkg/contracts/domain"
)

var (
	// ErrInsufficientStock is returned when a usage exceeds current stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUnknownCategory is returned for a category outside the fixed list.
	ErrUnknownCategory = errors.New("unknown material category")
	// ErrUnknownUnit is returned for a unit outside the fixed list.
	ErrUnknownUnit = errors.New("unknown material unit")
)

// ValidCategory reports whether c is one of domain.MaterialCategories.
func ValidCategory(c string) bool {
	for _, known := range domain.MaterialCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidUnit reports whether u is one of domain.MaterialUnits.
func ValidUnit(u string) bool {
	for _, known := range domain.MaterialUnits {
		if u == known {
			return true
		}
	}
	return false
}

// ValidateMaterial checks the category and unit of a material.
func ValidateMaterial(in domain.MaterialInput) error {
	if !ValidCategory(in.Category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, in.Category)
	}
	if !ValidUnit(in.Unit) {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, in.Unit)
	}
	return nil
}

// NewMaterial builds a material from a validated input.
func NewMaterial(in domain.MaterialInput) domain.Material {
	return domain.Material{
		Name:            in.Name,
		Description:     in.Description,
		Category:        in.Category,
		Unit:            in.Unit,
		CostPerUnit:     in.CostPerUnit,
		SupplierName:    in.SupplierName,
		SupplierContact: in.SupplierContact,
		MinStockLevel:   in.MinStockLevel,
		CurrentStock:    in.CurrentStock,
	}
}

// PurchaseTotal is quantity times unit cost, rounded to paise.
func PurchaseTotal(quantity, costPerUnit float64) float64 {
	return math.Round(quantity*costPerUnit*100) / 100
}

// CheckUsage returns ErrInsufficientStock when quantity exceeds the stock
// on hand.
func CheckUsage(m domain.Material, quantity float64) error {
	if quantity > m.CurrentStock {
		return fmt.Errorf("%w: %s has %g %s, %g requested", ErrInsufficientStock, m.Name, m.CurrentStock, m.Unit, quantity)
	}
	return nil
}

// Summarize condenses materials and purchases for the inventory dashboard.
// Category counts always carry every fixed category, zero included.
func Summarize(materials []domain.Material, purchases []domain.MaterialPurchase) domain.InventorySummary {
	summary := domain.InventorySummary{
		TotalItems:     len(materials),
		LowStock:       []domain.Material{},
		CategoryCounts: make(map[string]int, len(domain.MaterialCategories)),
	}
	for _, c := range domain.MaterialCategories {
		summary.CategoryCounts[c] = 0
	}

	for _, m := range materials {
		if m.LowStock() {
			summary.LowStock = append(summary.LowStock, m)
		}
		summary.InventoryValue += m.CurrentStock * m.CostPerUnit
		if _, ok := summary.CategoryCounts[m.Category]; ok {
			summary.CategoryCounts[m.Category]++
		} else {
			summary.CategoryCounts["Other"]++
		}
	}
	for _, p := range purchases {
		summary.PurchasesTotal += p.TotalCost
	}
	return summary
}
