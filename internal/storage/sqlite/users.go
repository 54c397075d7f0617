package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"taskzen/internal/models"
)

const userColumns = `id, name, email, password_hash, photo_url, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var created, updated string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PhotoURL, &created, &updated); err != nil {
		return models.User{}, err
	}
	u.CreatedAt = parseTime(created)
	u.UpdatedAt = parseTime(updated)
	return u, nil
}

// CreateUser registers a new account. The email must not be taken.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureEmailFree(ctx, tx, u.Email, ""); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO users(id, name, email, password_hash, photo_url, created_at, updated_at)
            VALUES(?, ?, ?, ?, ?, ?, ?)`, u.ID, u.Name, u.Email, u.PasswordHash, u.PhotoURL, now, now)
		if err != nil {
			return mapConstraint(err, "insert user")
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return s.GetUser(ctx, u.ID)
}

// EnsureUser creates the account when it does not exist yet and returns the
// stored record. It is used for identities issued by an external provider.
// When the email is already registered to another account the identity is
// provisioned without an email, so authentication never fails on it.
func (s *Store) EnsureUser(ctx context.Context, u models.User) (models.User, error) {
	now := s.timestamp()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		email := u.Email
		if err := ensureEmailFree(ctx, tx, email, u.ID); errors.Is(err, models.ErrConflict) {
			s.logger.Warn("external identity email already registered, provisioning without email",
				slog.String("user_id", u.ID))
			email = ""
		} else if err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO users(id, name, email, password_hash, photo_url, created_at, updated_at)
            VALUES(?, ?, ?, '', '', ?, ?) ON CONFLICT(id) DO NOTHING`, u.ID, u.Name, email, now, now)
		if err != nil {
			return mapConstraint(err, "ensure user")
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return s.GetUser(ctx, u.ID)
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.NotFound("user")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail fetches a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.NotFound("user")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpdateUser changes the display name and email of an account.
func (s *Store) UpdateUser(ctx context.Context, id, name, email string) (models.User, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureEmailFree(ctx, tx, email, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`, name, email, s.timestamp(), id)
		if err != nil {
			return mapConstraint(err, "update user")
		}
		return affectedOne(res, models.NotFound("user"))
	})
	if err != nil {
		return models.User{}, err
	}
	return s.GetUser(ctx, id)
}

// SetUserPhoto stores the avatar URL of an account.
func (s *Store) SetUserPhoto(ctx context.Context, id, photoURL string) (models.User, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET photo_url = ?, updated_at = ? WHERE id = ?`, photoURL, s.timestamp(), id)
	if err != nil {
		return models.User{}, fmt.Errorf("update photo: %w", err)
	}
	if err := affectedOne(res, models.NotFound("user")); err != nil {
		return models.User{}, err
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes an account together with all of its projects, columns
// and tasks.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			`DELETE FROM tasks WHERE user_id = ?`,
			`DELETE FROM board_columns WHERE project_id IN (SELECT id FROM projects WHERE user_id = ?)`,
			`DELETE FROM projects WHERE user_id = ?`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("delete user data: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return affectedOne(res, models.NotFound("user"))
	})
}

func ensureEmailFree(ctx context.Context, q queryer, email, exceptID string) error {
	if email == "" {
		return nil
	}
	var owner string
	err := q.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if owner == exceptID {
		return nil
	}
	return fmt.Errorf("email already in use: %w", models.ErrConflict)
}

func mapConstraint(err error, op string) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, models.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
