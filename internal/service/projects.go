package service

import (
	"context"
	"strings"

	"taskzen/internal/events"
	"taskzen/internal/models"
)

// ProjectInput carries the editable project fields.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func (in ProjectInput) normalize(defaultIcon string) (ProjectInput, error) {
	name, err := models.ValidateProjectName(in.Name)
	if err != nil {
		return ProjectInput{}, err
	}
	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		icon = defaultIcon
	}
	if !models.ValidIcon(icon) {
		return ProjectInput{}, models.Invalid("unknown icon %q", icon)
	}
	return ProjectInput{Name: name, Description: strings.TrimSpace(in.Description), Icon: icon}, nil
}

// ListProjects returns the projects of a user.
func (s *Service) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.store.ListProjects(ctx, userID)
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, userID, projectID string) (models.Project, error) {
	return s.store.GetProject(ctx, userID, projectID)
}

// CreateProject creates a project. The color is picked from the chart
// palette by the number of projects the user already has.
func (s *Service) CreateProject(ctx context.Context, userID string, in ProjectInput) (p models.Project, err error) {
	ctx, span := s.startSpan(ctx, "service.CreateProject", userID)
	defer func() { endSpan(span, err) }()

	in, err = in.normalize(models.DefaultIcon)
	if err != nil {
		return models.Project{}, err
	}
	p, err = s.store.CreateProject(ctx, models.Project{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		Icon:        in.Icon,
	})
	if err != nil {
		return models.Project{}, err
	}
	s.changed(ctx, events.ProjectCreated, userID, p.ID, p.ID)
	return p, nil
}

// UpdateProject replaces name, description and icon. An empty icon keeps
// the current one.
func (s *Service) UpdateProject(ctx context.Context, userID, projectID string, in ProjectInput) (p models.Project, err error) {
	ctx, span := s.startSpan(ctx, "service.UpdateProject", userID, projectAttr(projectID))
	defer func() { endSpan(span, err) }()

	current, err := s.store.GetProject(ctx, userID, projectID)
	if err != nil {
		return models.Project{}, err
	}
	in, err = in.normalize(current.Icon)
	if err != nil {
		return models.Project{}, err
	}
	current.Name = in.Name
	current.Description = in.Description
	current.Icon = in.Icon
	p, err = s.store.UpdateProject(ctx, current)
	if err != nil {
		return models.Project{}, err
	}
	s.changed(ctx, events.ProjectUpdated, userID, p.ID, p.ID)
	return p, nil
}

// DeleteProject removes a project with its columns and tasks.
func (s *Service) DeleteProject(ctx context.Context, userID, projectID string) (err error) {
	ctx, span := s.startSpan(ctx, "service.DeleteProject", userID, projectAttr(projectID))
	defer func() { endSpan(span, err) }()

	if err := s.store.DeleteProject(ctx, userID, projectID); err != nil {
		return err
	}
	s.changed(ctx, events.ProjectDeleted, userID, projectID, projectID)
	return nil
}
