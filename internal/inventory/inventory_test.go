package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildtrack/pkg/contracts/domain"
)

func TestSummarize(t *testing.T) {
	materials := []domain.Material{
		{Name: "Cement", Category: "Cement & Concrete", CurrentStock: 5, MinStockLevel: 10, CostPerUnit: 400},
		{Name: "TMT bars", Category: "Steel & Metal", CurrentStock: 100, MinStockLevel: 20, CostPerUnit: 60},
		{Name: "Ply", Category: "Wood & Timber", CurrentStock: 8, MinStockLevel: 8, CostPerUnit: 1200},
		{Name: "Mystery", Category: "Unlisted", CurrentStock: 1, MinStockLevel: 0, CostPerUnit: 0},
	}
	purchases := []domain.MaterialPurchase{{TotalCost: 2000}, {TotalCost: 550.5}}

	got := Summarize(materials, purchases)

	assert.Equal(t, 4, got.TotalItems)
	require.Len(t, got.LowStock, 2)
	assert.Equal(t, "Cement", got.LowStock[0].Name)
	assert.Equal(t, "Ply", got.LowStock[1].Name, "stock equal to the minimum is low")
	assert.Equal(t, 5*400.0+100*60.0+8*1200.0, got.InventoryValue)
	assert.Equal(t, 2550.5, got.PurchasesTotal)
	assert.Len(t, got.CategoryCounts, len(domain.MaterialCategories))
	assert.Equal(t, 1, got.CategoryCounts["Steel & Metal"])
	assert.Equal(t, 0, got.CategoryCounts["Roofing"])
	assert.Equal(t, 1, got.CategoryCounts["Other"], "unknown categories count as Other")
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, nil)
	assert.Equal(t, 0, got.TotalItems)
	assert.NotNil(t, got.LowStock)
	assert.Zero(t, got.InventoryValue)
}

func TestPurchaseTotal(t *testing.T) {
	assert.Equal(t, 1250.0, PurchaseTotal(2.5, 500))
	assert.Equal(t, 0.3, PurchaseTotal(3, 0.1))
}

func TestCheckUsage(t *testing.T) {
	m := domain.Material{Name: "Sand", Unit: "tons", CurrentStock: 3}

	assert.NoError(t, CheckUsage(m, 3))
	err := CheckUsage(m, 3.5)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Sand has 3 tons")
}

func TestValidateMaterial(t *testing.T) {
	ok := domain.MaterialInput{Name: "Cement", Category: "Cement & Concrete", Unit: "bags"}
	assert.NoError(t, ValidateMaterial(ok))

	badCategory := ok
	badCategory.Category = "Snacks"
	assert.ErrorIs(t, ValidateMaterial(badCategory), ErrUnknownCategory)

	badUnit := ok
	badUnit.Unit = "handfuls"
	assert.ErrorIs(t, ValidateMaterial(badUnit), ErrUnknownUnit)
}

func TestNewMaterial(t *testing.T) {
	m := NewMaterial(domain.MaterialInput{Name: "Tiles", Category: "Tiles & Flooring", Unit: "pieces", CurrentStock: 40})
	assert.Equal(t, "Tiles", m.Name)
	assert.Equal(t, 40.0, m.CurrentStock)
	assert.Empty(t, m.ID)
}
