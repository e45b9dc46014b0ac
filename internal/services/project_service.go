package services

import (
	"context"
	"fmt"
	"log/slog"

	"buildtrack/internal/session"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
)

// ProjectService manages construction projects.
type ProjectService struct {
	store     store.ProjectStore
	validator Validator
	logger    *slog.Logger
}

// NewProjectService creates a project service. A nil validator accepts every
// input.
func NewProjectService(s store.ProjectStore, v Validator, logger *slog.Logger) *ProjectService {
	if v == nil {
		v = nopValidator{}
	}
	return &ProjectService{
		store:     s,
		validator: v,
		logger:    serviceLogger(logger, "project_service"),
	}
}

// List returns every project.
func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Get returns one project.
func (s *ProjectService) Get(ctx context.Context, id string) (domain.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, notFound(err, ErrProjectNotFound, id)
	}
	return p, nil
}

// Create validates the input and stores a new project. Status defaults to
// Not Started.
func (s *ProjectService) Create(ctx context.Context, sess *domain.Session, in domain.ProjectInput) (domain.Project, error) {
	if err := session.Require(sess, domain.PermissionManageProjects); err != nil {
		return domain.Project{}, err
	}
	if err := s.validator.ValidateStruct(in); err != nil {
		return domain.Project{}, err
	}

	p, err := s.store.CreateProject(ctx, applyProjectInput(domain.Project{}, in))
	if err != nil {
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}
	s.logger.InfoContext(ctx, "project created",
		slog.String("project_id", p.ID),
		slog.String("user_id", sess.UserID))
	return p, nil
}

// Update replaces the editable fields of an existing project.
func (s *ProjectService) Update(ctx context.Context, sess *domain.Session, id string, in domain.ProjectInput) (domain.Project, error) {
	if err := session.Require(sess, domain.PermissionManageProjects); err != nil {
		return domain.Project{}, err
	}
	if err := s.validator.ValidateStruct(in); err != nil {
		return domain.Project{}, err
	}

	existing, err := s.store.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, notFound(err, ErrProjectNotFound, id)
	}
	p, err := s.store.UpdateProject(ctx, applyProjectInput(existing, in))
	if err != nil {
		return domain.Project{}, notFound(err, ErrProjectNotFound, id)
	}
	s.logger.InfoContext(ctx, "project updated", slog.String("project_id", id))
	return p, nil
}

// Delete removes a project.
func (s *ProjectService) Delete(ctx context.Context, sess *domain.Session, id string) error {
	if err := session.Require(sess, domain.PermissionManageProjects); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return notFound(err, ErrProjectNotFound, id)
	}
	s.logger.InfoContext(ctx, "project deleted", slog.String("project_id", id))
	return nil
}

func applyProjectInput(p domain.Project, in domain.ProjectInput) domain.Project {
	p.Name = in.Name
	p.Description = in.Description
	p.StartDate = in.StartDate
	p.TotalCost = in.TotalCost
	p.Status = in.Status
	if p.Status == "" {
		p.Status = domain.ProjectNotStarted
	}
	return p
}
