package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"buildtrack/internal/session"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
)

// AccessService manages roles, users and project assignments. Every
// operation requires the users:manage permission.
type AccessService struct {
	store     store.AccessStore
	validator Validator
	now       Clock
	logger    *slog.Logger
}

// NewAccessService creates an access service.
func NewAccessService(s store.AccessStore, v Validator, logger *slog.Logger) *AccessService {
	if v == nil {
		v = nopValidator{}
	}
	return &AccessService{
		store:     s,
		validator: v,
		now:       time.Now,
		logger:    serviceLogger(logger, "access_service"),
	}
}

// AccessOverview is the user management page payload.
type AccessOverview struct {
	Roles       []domain.Role              `json:"roles"`
	Users       []domain.User              `json:"users"`
	Assignments []domain.ProjectAssignment `json:"assignments"`
}

// Overview lists roles, users and every assignment.
func (s *AccessService) Overview(ctx context.Context, sess *domain.Session) (AccessOverview, error) {
	if err := session.Require(sess, domain.PermissionManageUsers); err != nil {
		return AccessOverview{}, err
	}

	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return AccessOverview{}, fmt.Errorf("list roles: %w", err)
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return AccessOverview{}, fmt.Errorf("list users: %w", err)
	}
	assignments, err := s.store.ListAssignments(ctx, "")
	if err != nil {
		return AccessOverview{}, fmt.Errorf("list assignments: %w", err)
	}
	return AccessOverview{Roles: roles, Users: users, Assignments: assignments}, nil
}

// Assignments lists the assignments of one user.
func (s *AccessService) Assignments(ctx context.Context, sess *domain.Session, userID string) ([]domain.ProjectAssignment, error) {
	if err := session.Require(sess, domain.PermissionManageUsers); err != nil {
		return nil, err
	}
	out, err := s.store.ListAssignments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return out, nil
}

// Assign grants a role on a project to a user.
func (s *AccessService) Assign(ctx context.Context, sess *domain.Session, in domain.AssignmentInput) (domain.ProjectAssignment, error) {
	if err := session.Require(sess, domain.PermissionManageUsers); err != nil {
		return domain.ProjectAssignment{}, err
	}
	if err := s.validator.ValidateStruct(in); err != nil {
		return domain.ProjectAssignment{}, err
	}

	a, err := s.store.CreateAssignment(ctx, domain.ProjectAssignment{
		UserID:     in.UserID,
		ProjectID:  in.ProjectID,
		RoleID:     in.RoleID,
		AssignedAt: s.now().UTC(),
	})
	if errors.Is(err, store.ErrConflict) {
		return domain.ProjectAssignment{}, fmt.Errorf("%w: %s on %s", ErrAssignmentConflict, in.RoleID, in.ProjectID)
	}
	if err != nil {
		return domain.ProjectAssignment{}, fmt.Errorf("create assignment: %w", err)
	}

	s.logger.InfoContext(ctx, "role assigned",
		slog.String("assignment_id", a.ID),
		slog.String("user_id", a.UserID),
		slog.String("project_id", a.ProjectID),
		slog.String("role_id", a.RoleID),
		slog.String("by", sess.UserID))
	return a, nil
}

// Remove deletes an assignment.
func (s *AccessService) Remove(ctx context.Context, sess *domain.Session, id string) error {
	if err := session.Require(sess, domain.PermissionManageUsers); err != nil {
		return err
	}
	if err := s.store.DeleteAssignment(ctx, id); err != nil {
		return notFound(err, ErrAssignmentNotFound, id)
	}
	s.logger.InfoContext(ctx, "assignment removed",
		slog.String("assignment_id", id),
		slog.String("by", sess.UserID))
	return nil
}
