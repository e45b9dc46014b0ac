package services

import (
	"errors"

	"buildtrack/internal/exporter"
	"buildtrack/internal/inventory"
)

// Service errors
var (
	// Lookup errors
	ErrProjectNotFound  = errors.New("project not found")
	ErrReportNotFound   = errors.New("report not found")
	ErrMaterialNotFound = errors.New("material not found")

	// Inventory errors
	ErrInsufficientStock = inventory.ErrInsufficientStock

	// Export errors
	ErrNothingToExport   = exporter.ErrNothingToExport
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// Access errors
	ErrAssignmentConflict = errors.New("assignment already exists")
	ErrAssignmentNotFound = errors.New("assignment not found")
)
