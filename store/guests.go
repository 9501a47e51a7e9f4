package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evite/models"
)

const guestColumns = `id, invitation_id, name, email, rsvp, rsvp_date`

// AddGuest persists a guest as-is. Email format is not checked here; only the
// bulk import path validates addresses.
func (s *Store) AddGuest(ctx context.Context, invitationID int64, name, email string) (*models.Guest, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO guest (invitation_id, name, email) VALUES (?, ?, ?)`,
		invitationID, name, email,
	)
	if err != nil {
		return nil, fmt.Errorf("insert guest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Guest{
		ID:           id,
		InvitationID: invitationID,
		Name:         name,
		Email:        email,
		RSVP:         models.RSVPPending,
	}, nil
}

func (s *Store) GetGuest(ctx context.Context, id int64) (*models.Guest, error) {
	return getGuest(ctx, s.db, id)
}

// ListGuests returns the guests of an invitation in insertion order.
func (s *Store) ListGuests(ctx context.Context, invitationID int64) ([]models.Guest, error) {
	return s.listGuests(ctx,
		`SELECT `+guestColumns+` FROM guest WHERE invitation_id = ? ORDER BY id`, invitationID)
}

// ListUnanswered returns guests that have neither accepted nor declined.
func (s *Store) ListUnanswered(ctx context.Context, invitationID int64) ([]models.Guest, error) {
	return s.listGuests(ctx,
		`SELECT `+guestColumns+` FROM guest WHERE invitation_id = ? AND rsvp = 'pending' ORDER BY id`, invitationID)
}

func (s *Store) listGuests(ctx context.Context, query string, args ...any) ([]models.Guest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// RemoveGuest deletes a guest if requester owns its invitation and returns
// the invitation id.
func (s *Store) RemoveGuest(ctx context.Context, guestID, requester int64) (int64, error) {
	var invitationID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx,
			`SELECT g.invitation_id, i.user_id
			 FROM guest g JOIN invitation i ON i.id = g.invitation_id
			 WHERE g.id = ?`, guestID,
		).Scan(&invitationID, &owner)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if owner != requester {
			return models.ErrPermissionDenied
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM guest WHERE id = ?`, guestID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return invitationID, nil
}

// RecordRSVP applies "accept" or "decline" and stamps rsvp_date with the
// current UTC time. Any other response leaves the guest untouched and
// reports applied=false.
func (s *Store) RecordRSVP(ctx context.Context, guestID int64, response string) (bool, error) {
	status, ok := models.StatusForResponse(response)
	if !ok {
		if _, err := s.GetGuest(ctx, guestID); err != nil {
			return false, err
		}
		return false, nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE guest SET rsvp = ?, rsvp_date = ? WHERE id = ?`,
		string(status), s.now(), guestID,
	)
	if err != nil {
		return false, fmt.Errorf("record rsvp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, models.ErrNotFound
	}
	return true, nil
}

func getGuest(ctx context.Context, q queryable, id int64) (*models.Guest, error) {
	g, err := scanGuest(q.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guest WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return g, err
}

func scanGuest(row scanner) (*models.Guest, error) {
	g := &models.Guest{}
	var status string
	var date sql.NullTime
	if err := row.Scan(&g.ID, &g.InvitationID, &g.Name, &g.Email, &status, &date); err != nil {
		return nil, err
	}
	g.RSVP = models.RSVPStatus(status)
	if date.Valid {
		t := date.Time.In(time.UTC)
		g.RSVPDate = &t
	}
	return g, nil
}
