package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taskzen/internal/board"
	"taskzen/internal/models"
)

const taskColumns = `id, project_id, user_id, name, description, completed, deadline, priority, status, position, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	var deadline sql.NullString
	var priority, created, updated string
	if err := row.Scan(&t.ID, &t.ProjectID, &t.UserID, &t.Name, &t.Description, &t.Completed, &deadline,
		&priority, &t.Status, &t.Order, &created, &updated); err != nil {
		return models.Task{}, err
	}
	t.Priority = models.Priority(priority)
	if deadline.Valid && deadline.String != "" {
		d, err := models.ParseDate(deadline.String)
		if err != nil {
			return models.Task{}, fmt.Errorf("task %s deadline: %w", t.ID, err)
		}
		t.Deadline = &d
	}
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

func deadlineValue(d *models.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func queryTasks(ctx context.Context, q queryer, query string, args ...any) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListTasks returns the tasks of a project ordered by column and position.
func (s *Store) ListTasks(ctx context.Context, userID, projectID string) ([]models.Task, error) {
	if _, err := getProject(ctx, s.db, userID, projectID); err != nil {
		return nil, err
	}
	return queryTasks(ctx, s.db, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY status, position, id`, projectID)
}

// ListUserTasks returns the tasks of every project of a user.
func (s *Store) ListUserTasks(ctx context.Context, userID string) ([]models.Task, error) {
	return queryTasks(ctx, s.db, `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY project_id, status, position, id`, userID)
}

// GetTask retrieves a task of a project owned by userID.
func (s *Store) GetTask(ctx context.Context, userID, projectID, id string) (models.Task, error) {
	return getTask(ctx, s.db, userID, projectID, id)
}

func getTask(ctx context.Context, q queryer, userID, projectID, id string) (models.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND project_id = ? AND user_id = ?`, id, projectID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, models.NotFound("task")
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func columnTaskCount(ctx context.Context, q queryer, projectID, columnID, exceptTaskID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE project_id = ? AND status = ? AND id <> ?`, projectID, columnID, exceptTaskID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count column tasks: %w", err)
	}
	return n, nil
}

// CreateTask inserts a task at the end of its column. The column must belong
// to the task's project.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if !t.Priority.Valid() {
		t.Priority = models.PriorityMedium
	}
	now := s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, t.UserID, t.ProjectID); err != nil {
			return err
		}
		if _, err := getColumn(ctx, tx, t.ProjectID, t.Status); err != nil {
			return err
		}
		order, err := columnTaskCount(ctx, tx, t.ProjectID, t.Status, "")
		if err != nil {
			return err
		}
		t.Order = order

		_, err = tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.ProjectID, t.UserID, t.Name, t.Description, boolToInt(t.Completed), deadlineValue(t.Deadline),
			string(t.Priority), t.Status, t.Order, now, now)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return s.touchProject(ctx, tx, t.ProjectID)
	})
	if err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, t.UserID, t.ProjectID, t.ID)
}

// UpdateTask stores the editable fields of t. When the status changes the
// task is appended to the end of its new column and the old column is
// compacted.
func (s *Store) UpdateTask(ctx context.Context, t models.Task) (models.Task, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getTask(ctx, tx, t.UserID, t.ProjectID, t.ID)
		if err != nil {
			return err
		}

		order := current.Order
		moved := t.Status != current.Status
		if moved {
			if _, err := getColumn(ctx, tx, t.ProjectID, t.Status); err != nil {
				return err
			}
			if order, err = columnTaskCount(ctx, tx, t.ProjectID, t.Status, t.ID); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `UPDATE tasks SET name = ?, description = ?, deadline = ?, priority = ?, status = ?, position = ?, updated_at = ?
            WHERE id = ?`, t.Name, t.Description, deadlineValue(t.Deadline), string(t.Priority), t.Status, order, s.timestamp(), t.ID)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		if moved {
			if err := s.compactColumn(ctx, tx, t.ProjectID, current.Status); err != nil {
				return err
			}
		}
		return s.touchProject(ctx, tx, t.ProjectID)
	})
	if err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, t.UserID, t.ProjectID, t.ID)
}

// SetTaskCompleted flips the completion flag of a task.
func (s *Store) SetTaskCompleted(ctx context.Context, userID, projectID, id string, completed bool) (models.Task, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ? AND project_id = ? AND user_id = ?`,
		boolToInt(completed), s.timestamp(), id, projectID, userID)
	if err != nil {
		return models.Task{}, fmt.Errorf("complete task: %w", err)
	}
	if err := affectedOne(res, models.NotFound("task")); err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, userID, projectID, id)
}

// DeleteTask removes a task and compacts the column it was in.
func (s *Store) DeleteTask(ctx context.Context, userID, projectID, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getTask(ctx, tx, userID, projectID, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if err := s.compactColumn(ctx, tx, projectID, current.Status); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, projectID)
	})
}

// ApplyTaskBatch writes the order and status changes of a task move in one
// transaction. Any update that does not match a task of the project, or a
// status that is not a column of the project, aborts the whole batch.
func (s *Store) ApplyTaskBatch(ctx context.Context, userID, projectID string, batch board.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, userID, projectID); err != nil {
			return err
		}
		if err := s.applyTaskBatch(ctx, tx, projectID, batch); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, projectID)
	})
}

func (s *Store) applyTaskBatch(ctx context.Context, tx *sql.Tx, projectID string, batch board.Batch) error {
	now := s.timestamp()
	for _, u := range batch.Updates {
		var (
			res sql.Result
			err error
		)
		if u.Status != nil {
			if _, err := getColumn(ctx, tx, projectID, *u.Status); err != nil {
				return err
			}
			res, err = tx.ExecContext(ctx, `UPDATE tasks SET position = ?, status = ?, updated_at = ? WHERE id = ? AND project_id = ?`,
				u.Order, *u.Status, now, u.ID, projectID)
		} else {
			res, err = tx.ExecContext(ctx, `UPDATE tasks SET position = ? WHERE id = ? AND project_id = ?`, u.Order, u.ID, projectID)
		}
		if err != nil {
			return fmt.Errorf("update task order: %w", err)
		}
		if err := affectedOne(res, models.NotFound("task")); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) compactColumn(ctx context.Context, tx *sql.Tx, projectID, columnID string) error {
	tasks, err := queryTasks(ctx, tx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ? AND status = ?`, projectID, columnID)
	if err != nil {
		return err
	}
	return s.applyTaskBatch(ctx, tx, projectID, board.Compact(tasks, columnID))
}
