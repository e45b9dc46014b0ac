package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"buildtrack/internal/inventory"
	"buildtrack/internal/session"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
	"buildtrack/pkg/contracts/events"
)

// MaterialService manages the materials inventory and its stock movements.
type MaterialService struct {
	store     store.MaterialStore
	validator Validator
	publisher Publisher
	now       Clock
	logger    *slog.Logger
}

// NewMaterialService creates a material service.
func NewMaterialService(s store.MaterialStore, v Validator, p Publisher, logger *slog.Logger) *MaterialService {
	if v == nil {
		v = nopValidator{}
	}
	if p == nil {
		p = nopPublisher{}
	}
	return &MaterialService{
		store:     s,
		validator: v,
		publisher: p,
		now:       time.Now,
		logger:    serviceLogger(logger, "material_service"),
	}
}

// List returns every material.
func (s *MaterialService) List(ctx context.Context) ([]domain.Material, error) {
	materials, err := s.store.ListMaterials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// Create validates and stores a new material.
func (s *MaterialService) Create(ctx context.Context, sess *domain.Session, in domain.MaterialInput) (domain.Material, error) {
	if err := session.Require(sess, domain.PermissionManageMaterial); err != nil {
		return domain.Material{}, err
	}
	if err := s.validator.ValidateStruct(in); err != nil {
		return domain.Material{}, err
	}
	if err := inventory.ValidateMaterial(in); err != nil {
		return domain.Material{}, err
	}

	m, err := s.store.CreateMaterial(ctx, inventory.NewMaterial(in))
	if err != nil {
		return domain.Material{}, fmt.Errorf("create material: %w", err)
	}
	s.logger.InfoContext(ctx, "material created",
		slog.String("material_id", m.ID),
		slog.String("category", m.Category))
	return m, nil
}

// Purchases returns every recorded purchase, newest first.
func (s *MaterialService) Purchases(ctx context.Context) ([]domain.MaterialPurchase, error) {
	purchases, err := s.store.ListPurchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}

// RecordPurchase stores a purchase and adds its quantity to stock. A zero
// unit cost uses the material's cost per unit.
func (s *MaterialService) RecordPurchase(ctx context.Context, sess *domain.Session, in domain.PurchaseInput) (domain.MaterialPurchase, error) {
	if err := session.Require(sess, domain.PermissionManageMaterial); err != nil {
		return domain.MaterialPurchase{}, err
	}
	if err := s.validator.ValidateStruct(in); err != nil {
		return domain.MaterialPurchase{}, err
	}

	m, err := s.store.GetMaterial(ctx, in.MaterialID)
	if err != nil {
		return domain.MaterialPurchase{}, notFound(err, ErrMaterialNotFound, in.MaterialID)
	}

	costPerUnit := in.CostPerUnit
	if costPerUnit == 0 {
		costPerUnit = m.CostPerUnit
	}
	supplier := in.SupplierName
	if supplier == "" {
		supplier = m.SupplierName
	}
	date := in.PurchaseDate
	if date.IsZero() {
		date = s.now().UTC()
	}

	p, err := s.store.CreatePurchase(ctx, domain.MaterialPurchase{
		MaterialID:   m.ID,
		ProjectID:    in.ProjectID,
		Quantity:     in.Quantity,
		CostPerUnit:  costPerUnit,
		TotalCost:    inventory.PurchaseTotal(in.Quantity, costPerUnit),
		SupplierName: supplier,
		PurchaseDate: date,
	})
	if err != nil {
		return domain.MaterialPurchase{}, notFound(err, ErrMaterialNotFound, in.MaterialID)
	}
	s.logger.InfoContext(ctx, "purchase recorded",
		slog.String("material_id", m.ID),
		slog.Float64("quantity", p.Quantity),
		slog.Float64("total_cost", p.TotalCost))
	return p, nil
}

// RecordUsage stores a usage and removes its quantity from stock. It returns
// ErrInsufficientStock when the stock on hand is too low and broadcasts
// material:low_stock when the usage leaves the material at or below its
// minimum level.
func (s *MaterialService) RecordUsage(ctx context.Context, sess *domain.Session, in domain.UsageInput) (domain.MaterialUsage, error) {
	if err := session.Require(sess, domain.PermissionManageMaterial); err != nil {
		return domain.MaterialUsage{}, err
	}
	if err := s.validator.ValidateStruct(in); err != nil {
		return domain.MaterialUsage{}, err
	}

	m, err := s.store.GetMaterial(ctx, in.MaterialID)
	if err != nil {
		return domain.MaterialUsage{}, notFound(err, ErrMaterialNotFound, in.MaterialID)
	}
	if err := inventory.CheckUsage(m, in.Quantity); err != nil {
		return domain.MaterialUsage{}, err
	}

	date := in.UsageDate
	if date.IsZero() {
		date = s.now().UTC()
	}
	u, err := s.store.CreateUsage(ctx, domain.MaterialUsage{
		MaterialID:    m.ID,
		ProjectID:     in.ProjectID,
		DailyReportID: in.DailyReportID,
		Quantity:      in.Quantity,
		UsageDate:     date,
		Notes:         in.Notes,
	})
	switch {
	case errors.Is(err, store.ErrConflict):
		// stock moved between the check and the write
		return domain.MaterialUsage{}, fmt.Errorf("%w: %s", ErrInsufficientStock, m.Name)
	case err != nil:
		return domain.MaterialUsage{}, notFound(err, ErrMaterialNotFound, in.MaterialID)
	}

	s.logger.InfoContext(ctx, "usage recorded",
		slog.String("material_id", m.ID),
		slog.Float64("quantity", u.Quantity))

	m.CurrentStock -= u.Quantity
	if m.LowStock() {
		s.logger.WarnContext(ctx, "material below minimum stock",
			slog.String("material_id", m.ID),
			slog.Float64("current_stock", m.CurrentStock),
			slog.Float64("min_stock_level", m.MinStockLevel))
		publish(ctx, s.publisher, s.logger, events.MessageTypeLowStock, events.LowStock{
			MaterialID:    m.ID,
			Name:          m.Name,
			CurrentStock:  m.CurrentStock,
			MinStockLevel: m.MinStockLevel,
			Unit:          m.Unit,
		})
	}
	return u, nil
}

// Summary computes the inventory dashboard figures.
func (s *MaterialService) Summary(ctx context.Context) (domain.InventorySummary, error) {
	materials, err := s.store.ListMaterials(ctx)
	if err != nil {
		return domain.InventorySummary{}, fmt.Errorf("list materials: %w", err)
	}
	purchases, err := s.store.ListPurchases(ctx)
	if err != nil {
		return domain.InventorySummary{}, fmt.Errorf("list purchases: %w", err)
	}
	return inventory.Summarize(materials, purchases), nil
}
