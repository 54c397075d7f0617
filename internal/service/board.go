package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"taskzen/internal/board"
	"taskzen/internal/events"
	"taskzen/internal/models"
)

// Board returns a project with its ordered columns and all of its tasks.
// Boards are served from the cache when possible.
func (s *Service) Board(ctx context.Context, userID, projectID string) (models.Board, error) {
	cached, gen, ok := s.cache.Board(ctx, projectID)
	if ok && cached.Project.UserID == userID {
		return cached, nil
	}
	b, err := s.loadBoard(ctx, userID, projectID)
	if err != nil {
		return models.Board{}, err
	}
	s.cache.StoreBoard(ctx, b, gen)
	return b, nil
}

func (s *Service) loadBoard(ctx context.Context, userID, projectID string) (models.Board, error) {
	p, err := s.store.GetProject(ctx, userID, projectID)
	if err != nil {
		return models.Board{}, err
	}
	columns, err := s.store.ListColumns(ctx, userID, projectID)
	if err != nil {
		return models.Board{}, err
	}
	tasks, err := s.store.ListTasks(ctx, userID, projectID)
	if err != nil {
		return models.Board{}, err
	}
	return models.Board{Project: p, Columns: columns, Tasks: tasks}, nil
}

// Columns returns the columns of a project in display order.
func (s *Service) Columns(ctx context.Context, userID, projectID string) ([]models.Column, error) {
	return s.store.ListColumns(ctx, userID, projectID)
}

// AddColumn appends a column. An empty title becomes "New column".
func (s *Service) AddColumn(ctx context.Context, userID, projectID, title string) (c models.Column, err error) {
	ctx, span := s.startSpan(ctx, "service.AddColumn", userID, projectAttr(projectID))
	defer func() { endSpan(span, err) }()

	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultColumnTitle
	}
	c, err = s.store.CreateColumn(ctx, userID, projectID, title)
	if err != nil {
		return models.Column{}, err
	}
	s.changed(ctx, events.ColumnsChanged, userID, projectID, c.ID)
	return c, nil
}

// RenameColumn changes a column title.
func (s *Service) RenameColumn(ctx context.Context, userID, projectID, columnID, title string) (c models.Column, err error) {
	ctx, span := s.startSpan(ctx, "service.RenameColumn", userID, projectAttr(projectID))
	defer func() { endSpan(span, err) }()

	title = strings.TrimSpace(title)
	if title == "" {
		return models.Column{}, models.Invalid("column title is required")
	}
	c, err = s.store.RenameColumn(ctx, userID, projectID, columnID, title)
	if err != nil {
		return models.Column{}, err
	}
	s.changed(ctx, events.ColumnsChanged, userID, projectID, c.ID)
	return c, nil
}

// DeleteColumn removes a column together with its tasks.
func (s *Service) DeleteColumn(ctx context.Context, userID, projectID, columnID string) (err error) {
	ctx, span := s.startSpan(ctx, "service.DeleteColumn", userID, projectAttr(projectID))
	defer func() { endSpan(span, err) }()

	if err := s.store.DeleteColumn(ctx, userID, projectID, columnID); err != nil {
		return err
	}
	s.changed(ctx, events.ColumnsChanged, userID, projectID, columnID)
	return nil
}

// MoveColumn drags the column at index from to index to.
func (s *Service) MoveColumn(ctx context.Context, userID, projectID string, from, to int) (columns []models.Column, err error) {
	ctx, span := s.startSpan(ctx, "service.MoveColumn", userID, projectAttr(projectID),
		attribute.Int("taskzen.from", from), attribute.Int("taskzen.to", to))
	defer func() { endSpan(span, err) }()

	current, err := s.store.ListColumns(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	columns, updates, err := board.ReorderColumns(current, from, to)
	if err != nil {
		return nil, models.Invalid("%v", err)
	}
	if err := s.store.ApplyColumnOrder(ctx, userID, projectID, updates); err != nil {
		return nil, err
	}
	s.changed(ctx, events.ColumnsChanged, userID, projectID, "")
	return columns, nil
}
