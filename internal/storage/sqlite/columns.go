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

// ListColumns returns the columns of a project in display order.
func (s *Store) ListColumns(ctx context.Context, userID, projectID string) ([]models.Column, error) {
	if _, err := getProject(ctx, s.db, userID, projectID); err != nil {
		return nil, err
	}
	return listColumns(ctx, s.db, projectID)
}

func listColumns(ctx context.Context, q queryer, projectID string) ([]models.Column, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, project_id, title, position FROM board_columns WHERE project_id = ? ORDER BY position, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	columns := []models.Column{}
	for rows.Next() {
		var c models.Column
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Title, &c.Order); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func getColumn(ctx context.Context, q queryer, projectID, id string) (models.Column, error) {
	var c models.Column
	err := q.QueryRowContext(ctx, `SELECT id, project_id, title, position FROM board_columns WHERE id = ? AND project_id = ?`, id, projectID).
		Scan(&c.ID, &c.ProjectID, &c.Title, &c.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Column{}, models.NotFound("column")
	}
	if err != nil {
		return models.Column{}, fmt.Errorf("get column: %w", err)
	}
	return c, nil
}

// CreateColumn appends a column at the end of the board.
func (s *Store) CreateColumn(ctx context.Context, userID, projectID, title string) (models.Column, error) {
	col := models.Column{ID: uuid.NewString(), ProjectID: projectID, Title: title}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, userID, projectID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM board_columns WHERE project_id = ?`, projectID).Scan(&col.Order); err != nil {
			return fmt.Errorf("count columns: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO board_columns(id, project_id, title, position) VALUES(?, ?, ?, ?)`,
			col.ID, col.ProjectID, col.Title, col.Order); err != nil {
			return fmt.Errorf("insert column: %w", err)
		}
		return s.touchProject(ctx, tx, projectID)
	})
	if err != nil {
		return models.Column{}, err
	}
	return col, nil
}

// RenameColumn changes the title of a column.
func (s *Store) RenameColumn(ctx context.Context, userID, projectID, columnID, title string) (models.Column, error) {
	var col models.Column
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, userID, projectID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE board_columns SET title = ? WHERE id = ? AND project_id = ?`, title, columnID, projectID)
		if err != nil {
			return fmt.Errorf("rename column: %w", err)
		}
		if err := affectedOne(res, models.NotFound("column")); err != nil {
			return err
		}
		col, err = getColumn(ctx, tx, projectID, columnID)
		return err
	})
	if err != nil {
		return models.Column{}, err
	}
	return col, nil
}

// DeleteColumn removes a column with every task in it and closes the gap
// in the order of the remaining columns.
func (s *Store) DeleteColumn(ctx context.Context, userID, projectID, columnID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, userID, projectID); err != nil {
			return err
		}
		if _, err := getColumn(ctx, tx, projectID, columnID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ? AND status = ?`, projectID, columnID); err != nil {
			return fmt.Errorf("delete column tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM board_columns WHERE id = ?`, columnID); err != nil {
			return fmt.Errorf("delete column: %w", err)
		}

		remaining, err := listColumns(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if err := applyColumnOrder(ctx, tx, projectID, board.CompactColumns(remaining)); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, projectID)
	})
}

// ApplyColumnOrder writes a column reorder in one transaction. The whole
// batch fails when any column does not belong to the project.
func (s *Store) ApplyColumnOrder(ctx context.Context, userID, projectID string, updates []board.OrderUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, userID, projectID); err != nil {
			return err
		}
		if err := applyColumnOrder(ctx, tx, projectID, updates); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, projectID)
	})
}

func applyColumnOrder(ctx context.Context, tx *sql.Tx, projectID string, updates []board.OrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `UPDATE board_columns SET position = ? WHERE id = ? AND project_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare column order: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.Order, u.ID, projectID)
		if err != nil {
			return fmt.Errorf("update column order: %w", err)
		}
		if err := affectedOne(res, models.NotFound("column")); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) touchProject(ctx context.Context, tx *sql.Tx, projectID string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, s.timestamp(), projectID); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return nil
}
