package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taskzen/internal/models"
)

const projectColumns = `id, user_id, name, description, icon, color, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (models.Project, error) {
	var p models.Project
	var created, updated string
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Icon, &p.Color, &created, &updated); err != nil {
		return models.Project{}, err
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

// ListProjects retrieves the projects of a user ordered by creation date.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CountProjects returns how many projects a user owns.
func (s *Store) CountProjects(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

// CreateProject persists a new project. The color is derived from the number
// of projects the user already has unless one is provided.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Icon == "" {
		p.Icon = models.DefaultIcon
	}
	now := s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if p.Color == "" {
			var existing int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE user_id = ?`, p.UserID).Scan(&existing); err != nil {
				return fmt.Errorf("count projects: %w", err)
			}
			p.Color = models.ProjectColor(existing)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO projects(id, user_id, name, description, icon, color, created_at, updated_at)
            VALUES(?, ?, ?, ?, ?, ?, ?, ?)`, p.ID, p.UserID, p.Name, p.Description, p.Icon, p.Color, now, now)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, p.UserID, p.ID)
}

// GetProject fetches a single project owned by userID.
func (s *Store) GetProject(ctx context.Context, userID, id string) (models.Project, error) {
	return getProject(ctx, s.db, userID, id)
}

func getProject(ctx context.Context, q queryer, userID, id string) (models.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, models.NotFound("project")
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject rewrites the editable fields of a project.
func (s *Store) UpdateProject(ctx context.Context, p models.Project) (models.Project, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, description = ?, icon = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		p.Name, p.Description, p.Icon, s.timestamp(), p.ID, p.UserID)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := affectedOne(res, models.NotFound("project")); err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, p.UserID, p.ID)
}

// DeleteProject removes a project along with its tasks and columns.
func (s *Store) DeleteProject(ctx context.Context, userID, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, userID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
			return fmt.Errorf("delete project tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM board_columns WHERE project_id = ?`, id); err != nil {
			return fmt.Errorf("delete project columns: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
}
