package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evite/models"
)

const invitationColumns = `id, user_id, event_name, event_date, image_path, description, location, theme, created_at`

func (s *Store) CreateInvitation(ctx context.Context, ownerID int64, f models.InvitationFields) (*models.Invitation, error) {
	f = f.Normalize()
	date, err := f.Validate()
	if err != nil {
		return nil, err
	}

	inv := &models.Invitation{
		OwnerID:     ownerID,
		EventName:   f.EventName,
		EventDate:   date,
		ImagePath:   f.ImagePath,
		Description: f.Description,
		Location:    f.Location,
		Theme:       f.Theme,
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invitation (user_id, event_name, event_date, image_path, description, location, theme)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.OwnerID, inv.EventName, inv.EventDate, nullString(inv.ImagePath), inv.Description, inv.Location, inv.Theme,
	)
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	if inv.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return s.GetInvitation(ctx, inv.ID)
}

func (s *Store) GetInvitation(ctx context.Context, id int64) (*models.Invitation, error) {
	return getInvitation(ctx, s.db, id)
}

// GetOwnedInvitation loads an invitation and fails with ErrPermissionDenied
// unless requester owns it.
func (s *Store) GetOwnedInvitation(ctx context.Context, id, requester int64) (*models.Invitation, error) {
	inv, err := s.GetInvitation(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.OwnerID != requester {
		return nil, models.ErrPermissionDenied
	}
	return inv, nil
}

// ListInvitations returns the owner's invitations in creation order.
func (s *Store) ListInvitations(ctx context.Context, ownerID int64) ([]models.Invitation, error) {
	return s.listInvitations(ctx,
		`SELECT `+invitationColumns+` FROM invitation WHERE user_id = ? ORDER BY id`, ownerID)
}

// AllInvitations lists every invitation of every user, for operator tooling.
func (s *Store) AllInvitations(ctx context.Context) ([]models.Invitation, error) {
	return s.listInvitations(ctx, `SELECT `+invitationColumns+` FROM invitation ORDER BY id`)
}

func (s *Store) listInvitations(ctx context.Context, query string, args ...any) ([]models.Invitation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (s *Store) UpdateInvitation(ctx context.Context, id int64, f models.InvitationFields, requester int64) (*models.Invitation, error) {
	var updated *models.Invitation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		inv, err := getInvitation(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.OwnerID != requester {
			return models.ErrPermissionDenied
		}

		f = f.Normalize()
		date, err := f.Validate()
		if err != nil {
			return err
		}
		inv.EventName = f.EventName
		inv.EventDate = date
		inv.Description = f.Description
		inv.Location = f.Location
		inv.Theme = f.Theme
		if f.ImagePath != "" {
			inv.ImagePath = f.ImagePath
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE invitation
			 SET event_name = ?, event_date = ?, image_path = ?, description = ?, location = ?, theme = ?
			 WHERE id = ?`,
			inv.EventName, inv.EventDate, nullString(inv.ImagePath), inv.Description, inv.Location, inv.Theme, inv.ID,
		); err != nil {
			return fmt.Errorf("update invitation: %w", err)
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteInvitation removes the invitation and all of its guests atomically.
func (s *Store) DeleteInvitation(ctx context.Context, id, requester int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		inv, err := getInvitation(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.OwnerID != requester {
			return models.ErrPermissionDenied
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM guest WHERE invitation_id = ?`, id); err != nil {
			return fmt.Errorf("delete guests: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invitation WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete invitation: %w", err)
		}
		return nil
	})
}

func getInvitation(ctx context.Context, q queryable, id int64) (*models.Invitation, error) {
	inv, err := scanInvitation(q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitation WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return inv, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row scanner) (*models.Invitation, error) {
	inv := &models.Invitation{}
	var image sql.NullString
	if err := row.Scan(&inv.ID, &inv.OwnerID, &inv.EventName, &inv.EventDate, &image,
		&inv.Description, &inv.Location, &inv.Theme, &inv.CreatedAt); err != nil {
		return nil, err
	}
	inv.ImagePath = image.String
	return inv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
