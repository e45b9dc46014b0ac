package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildtrack/internal/session"
	"buildtrack/internal/shared/testutil"
	"buildtrack/pkg/contracts/domain"
	"buildtrack/pkg/contracts/events"
)

func newTestMaterialService(t *testing.T) (*MaterialService, *recordingPublisher) {
	logger, _ := testutil.NewTestLogger(t)
	pub := &recordingPublisher{}
	svc := NewMaterialService(newTestStore(), newTestValidator(t), pub, logger)
	svc.now = testClock
	return svc, pub
}

func TestMaterialServiceCreate(t *testing.T) {
	svc, _ := newTestMaterialService(t)
	ctx := context.Background()

	in := domain.MaterialInput{Name: "TMT Bars 12mm", Category: "Steel & Metal", Unit: "tons", CostPerUnit: 62000, MinStockLevel: 2}

	_, err := svc.Create(ctx, viewerSession(), in)
	assert.ErrorIs(t, err, session.ErrForbidden)

	bad := in
	bad.Category = "Groceries"
	_, err = svc.Create(ctx, adminSession(), bad)
	assert.Error(t, err)

	m, err := svc.Create(ctx, adminSession(), in)
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMaterialServiceRecordPurchase(t *testing.T) {
	svc, _ := newTestMaterialService(t)
	ctx := context.Background()

	p, err := svc.RecordPurchase(ctx, adminSession(), domain.PurchaseInput{MaterialID: "m1", Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, 400.0, p.CostPerUnit, "unit cost defaults to the material's")
	assert.Equal(t, 8000.0, p.TotalCost)
	assert.Equal(t, "Ambuja Dealers", p.SupplierName)
	assert.Equal(t, testNow, p.PurchaseDate)

	_, err = svc.RecordPurchase(ctx, adminSession(), domain.PurchaseInput{MaterialID: "m404", Quantity: 1})
	assert.ErrorIs(t, err, ErrMaterialNotFound)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalItems)
	assert.Equal(t, 8000.0, summary.PurchasesTotal)
	assert.Equal(t, 30.0*400, summary.InventoryValue)
	assert.Empty(t, summary.LowStock)
}

func TestMaterialServiceRecordUsage(t *testing.T) {
	svc, pub := newTestMaterialService(t)
	ctx := context.Background()

	_, err := svc.RecordUsage(ctx, adminSession(), domain.UsageInput{MaterialID: "m1", Quantity: 11})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = svc.RecordUsage(ctx, adminSession(), domain.UsageInput{MaterialID: "m1", Quantity: 3, DailyReportID: ptr("r1")})
	require.NoError(t, err)
	assert.Empty(t, pub.Events(), "stock still above minimum")

	_, err = svc.RecordUsage(ctx, adminSession(), domain.UsageInput{MaterialID: "m1", Quantity: 2})
	require.NoError(t, err)

	published := pub.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.MessageTypeLowStock, published[0].Type)
	low, ok := published[0].Data.(events.LowStock)
	require.True(t, ok)
	assert.Equal(t, 5.0, low.CurrentStock)
	assert.Equal(t, "bags", low.Unit)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary.LowStock, 1)
	assert.Equal(t, "m1", summary.LowStock[0].ID)
}
