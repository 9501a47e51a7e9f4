package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evite/models"
)

// CreateUser inserts u after checking username then email uniqueness.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM user WHERE username = ?)`, u.Username,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateUsername
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM user WHERE email = ?)`, u.Email,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateEmail
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO user (username, email, password_hash) VALUES (?, ?, ?)`,
			u.Username, u.Email, u.PasswordHash,
		)
		if err != nil {
			// lost a race against a concurrent signup
			switch uniqueViolation(err) {
			case "user.username":
				return models.ErrDuplicateUsername
			case "user.email":
				return models.ErrDuplicateEmail
			}
			return fmt.Errorf("insert user: %w", err)
		}
		u.ID, err = res.LastInsertId()
		return err
	})
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM user WHERE username = ?`, username))
}

func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM user WHERE id = ?`, id))
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user`).Scan(&n)
	return n, err
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
