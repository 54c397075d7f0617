package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"taskzen/internal/board"
	"taskzen/internal/events"
	"taskzen/internal/models"
)

// TaskInput carries the task form. Status is a column id. A deadline is
// required unless NoDeadline is set.
type TaskInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Deadline    *models.Date    `json:"deadline"`
	NoDeadline  bool            `json:"no_deadline"`
	Priority    models.Priority `json:"priority"`
	Status      string          `json:"status"`
}

func (in TaskInput) apply(t models.Task) (models.Task, error) {
	name, err := models.ValidateTaskName(in.Name)
	if err != nil {
		return models.Task{}, err
	}
	t.Name = name
	t.Description = strings.TrimSpace(in.Description)

	switch {
	case in.NoDeadline:
		t.Deadline = nil
	case in.Deadline != nil:
		d := *in.Deadline
		t.Deadline = &d
	default:
		return models.Task{}, models.Invalid("deadline is required unless no_deadline is set")
	}

	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return models.Task{}, models.Invalid("unknown priority %q", in.Priority)
	}
	t.Priority = in.Priority
	return t, nil
}

// resolveStatus returns the column a task goes to. An empty status selects
// the first column of the board.
func resolveStatus(columns []models.Column, status string) (string, error) {
	if len(columns) == 0 {
		return "", models.Invalid("no columns available, add a column first")
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return board.SortColumns(columns)[0].ID, nil
	}
	for _, c := range columns {
		if c.ID == status {
			return status, nil
		}
	}
	return "", models.Invalid("status %q is not a column of the project", status)
}

// Tasks returns the tasks of a project.
func (s *Service) Tasks(ctx context.Context, userID, projectID string) ([]models.Task, error) {
	return s.store.ListTasks(ctx, userID, projectID)
}

// CreateTask adds a task at the end of its column.
func (s *Service) CreateTask(ctx context.Context, userID, projectID string, in TaskInput) (t models.Task, err error) {
	ctx, span := s.startSpan(ctx, "service.CreateTask", userID, projectAttr(projectID))
	defer func() { endSpan(span, err) }()

	t, err = in.apply(models.Task{UserID: userID, ProjectID: projectID})
	if err != nil {
		return models.Task{}, err
	}
	columns, err := s.store.ListColumns(ctx, userID, projectID)
	if err != nil {
		return models.Task{}, err
	}
	if t.Status, err = resolveStatus(columns, in.Status); err != nil {
		return models.Task{}, err
	}
	t, err = s.store.CreateTask(ctx, t)
	if err != nil {
		return models.Task{}, err
	}
	s.changed(ctx, events.TaskCreated, userID, projectID, t.ID)
	return t, nil
}

// UpdateTask rewrites a task from the form. An empty status keeps the
// current column; a different one moves the task to the end of it.
func (s *Service) UpdateTask(ctx context.Context, userID, projectID, taskID string, in TaskInput) (t models.Task, err error) {
	ctx, span := s.startSpan(ctx, "service.UpdateTask", userID, projectAttr(projectID), attribute.String("taskzen.task_id", taskID))
	defer func() { endSpan(span, err) }()

	current, err := s.store.GetTask(ctx, userID, projectID, taskID)
	if err != nil {
		return models.Task{}, err
	}
	t, err = in.apply(current)
	if err != nil {
		return models.Task{}, err
	}
	if strings.TrimSpace(in.Status) != "" && in.Status != current.Status {
		columns, err := s.store.ListColumns(ctx, userID, projectID)
		if err != nil {
			return models.Task{}, err
		}
		if t.Status, err = resolveStatus(columns, in.Status); err != nil {
			return models.Task{}, err
		}
	}
	t, err = s.store.UpdateTask(ctx, t)
	if err != nil {
		return models.Task{}, err
	}
	s.changed(ctx, events.TaskUpdated, userID, projectID, t.ID)
	return t, nil
}

// ToggleTask flips the completion flag of a task.
func (s *Service) ToggleTask(ctx context.Context, userID, projectID, taskID string) (t models.Task, err error) {
	ctx, span := s.startSpan(ctx, "service.ToggleTask", userID, projectAttr(projectID), attribute.String("taskzen.task_id", taskID))
	defer func() { endSpan(span, err) }()

	current, err := s.store.GetTask(ctx, userID, projectID, taskID)
	if err != nil {
		return models.Task{}, err
	}
	t, err = s.store.SetTaskCompleted(ctx, userID, projectID, taskID, !current.Completed)
	if err != nil {
		return models.Task{}, err
	}
	s.changed(ctx, events.TaskUpdated, userID, projectID, t.ID)
	return t, nil
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, userID, projectID, taskID string) (err error) {
	ctx, span := s.startSpan(ctx, "service.DeleteTask", userID, projectAttr(projectID), attribute.String("taskzen.task_id", taskID))
	defer func() { endSpan(span, err) }()

	if err := s.store.DeleteTask(ctx, userID, projectID, taskID); err != nil {
		return err
	}
	s.changed(ctx, events.TaskDeleted, userID, projectID, taskID)
	return nil
}

// MoveTask applies a drag of a task card and returns the updated tasks of
// the project.
func (s *Service) MoveTask(ctx context.Context, userID, projectID string, mv board.TaskMove) (tasks []models.Task, err error) {
	ctx, span := s.startSpan(ctx, "service.MoveTask", userID, projectAttr(projectID),
		attribute.String("taskzen.source_column", mv.SourceColumn),
		attribute.String("taskzen.destination_column", mv.DestinationColumn))
	defer func() { endSpan(span, err) }()

	columns, err := s.store.ListColumns(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	for _, id := range []string{mv.SourceColumn, mv.DestinationColumn} {
		if !hasColumn(columns, id) {
			return nil, models.NotFound("column")
		}
	}
	current, err := s.store.ListTasks(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	batch, err := board.MoveTask(current, mv)
	if err != nil {
		return nil, models.Invalid("%v", err)
	}
	span.SetAttributes(attribute.Int("taskzen.batch_size", batch.Len()))
	if err := s.store.ApplyTaskBatch(ctx, userID, projectID, batch); err != nil {
		return nil, err
	}
	s.changed(ctx, events.TasksMoved, userID, projectID, mv.TaskID)
	return s.store.ListTasks(ctx, userID, projectID)
}

func hasColumn(columns []models.Column, id string) bool {
	for _, c := range columns {
		if c.ID == id {
			return true
		}
	}
	return false
}
