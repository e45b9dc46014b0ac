package domain

import (
	"time"
)

// PermissionAll grants every permission.
const PermissionAll = "*"

// Permission names checked by services.
const (
	PermissionExportReports  = "reports:export"
	PermissionSubmitReports  = "reports:submit"
	PermissionManageProjects = "projects:write"
	PermissionManageMaterial = "materials:write"
	PermissionManageUsers    = "users:manage"
)

// Role is a named permission set.
type Role struct {
	ID          string   `json:"id" db:"id"`
	Name        string   `json:"name" db:"name"`
	Description string   `json:"description,omitempty" db:"description"`
	Permissions []string `json:"permissions" db:"-"`
}

// User is an account known to the hosted auth service.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name,omitempty" db:"full_name"`
	Roles     []string  `json:"roles" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProjectAssignment grants a user a role on a project.
type ProjectAssignment struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	ProjectID  string    `json:"project_id" db:"project_id"`
	RoleID     string    `json:"role_id" db:"role_id"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}

// AssignmentInput is an assignment request.
type AssignmentInput struct {
	UserID    string `json:"user_id" validate:"required"`
	ProjectID string `json:"project_id" validate:"required"`
	RoleID    string `json:"role_id" validate:"required"`
}

// Permissions merges the permissions of roles, without duplicates, in first
// seen order.
func Permissions(roles []Role) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range roles {
		for _, p := range r.Permissions {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Session is the authenticated context of one signed-in user. It is created
// at sign-in and discarded at sign-out or expiry.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Can reports whether the session holds the permission.
func (s *Session) Can(permission string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Permissions {
		if p == PermissionAll || p == permission {
			return true
		}
	}
	return false
}

// Expired reports whether the session has outlived its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}
