// Package store defines the data-access collaborator the services read from
// and write to. Query semantics (equality, substring match, ordering, limits)
// belong to the implementations in the memory and postgres subpackages.
package store

import (
	"context"
	"errors"

	"buildtrack/pkg/contracts/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write no longer applies to the stored
	// state, such as a stock decrement below zero.
	ErrConflict = errors.New("write conflict")
)

// ProjectStore persists projects.
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id string) (domain.Project, error)
	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// ReportStore persists daily progress reports. Reports are returned in
// source form; callers sanitize them.
type ReportStore interface {
	ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.RawReport, error)
	GetReport(ctx context.Context, id string) (domain.RawReport, error)
	CreateReport(ctx context.Context, r domain.RawReport) (domain.RawReport, error)
	// LatestReports returns up to n reports, newest report date first.
	LatestReports(ctx context.Context, n int) ([]domain.RawReport, error)
	CostEntries(ctx context.Context, reportIDs []string) ([]domain.CostEntry, error)
	Photos(ctx context.Context, reportIDs []string) ([]domain.PhotoRef, error)
}

// MaterialStore persists the materials inventory.
type MaterialStore interface {
	ListMaterials(ctx context.Context) ([]domain.Material, error)
	GetMaterial(ctx context.Context, id string) (domain.Material, error)
	CreateMaterial(ctx context.Context, m domain.Material) (domain.Material, error)
	ListPurchases(ctx context.Context) ([]domain.MaterialPurchase, error)
	// CreatePurchase records the purchase and adds its quantity to stock.
	CreatePurchase(ctx context.Context, p domain.MaterialPurchase) (domain.MaterialPurchase, error)
	// CreateUsage records the usage and removes its quantity from stock. It
	// returns ErrConflict when the stock is too low.
	CreateUsage(ctx context.Context, u domain.MaterialUsage) (domain.MaterialUsage, error)
}

// AccessStore persists roles, users and project assignments.
type AccessStore interface {
	ListRoles(ctx context.Context) ([]domain.Role, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// RolesForUser returns the roles granted to the user by any assignment.
	RolesForUser(ctx context.Context, userID string) ([]domain.Role, error)
	ListAssignments(ctx context.Context, userID string) ([]domain.ProjectAssignment, error)
	CreateAssignment(ctx context.Context, a domain.ProjectAssignment) (domain.ProjectAssignment, error)
	DeleteAssignment(ctx context.Context, id string) error
}

// SearchStore runs case-insensitive substring searches.
type SearchStore interface {
	SearchProjects(ctx context.Context, query string, limit int) ([]domain.Project, error)
	// SearchReports matches the work description or the project name.
	SearchReports(ctx context.Context, query string, limit int) ([]domain.RawReport, error)
	SearchMaterials(ctx context.Context, query string, limit int) ([]domain.Material, error)
}

// Store is the full data-access collaborator.
type Store interface {
	ProjectStore
	ReportStore
	MaterialStore
	AccessStore
	SearchStore
	Ping(ctx context.Context) error
	Close() error
}
