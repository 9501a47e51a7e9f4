// Package rsvp maps RSVP link tokens to guests and records their answers.
//
// By default a token is the guest's decimal id: anyone holding the link (or
// guessing an id) can answer for that guest. Sealed mode replaces it with the
// id encrypted under a key derived from the session secret, after which raw
// ids are rejected.
package rsvp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"evite/crypto"
	"evite/models"
)

// tokenLabel scopes sealed tokens to RSVP links.
const tokenLabel = "evite-rsvp-token"

type Repository interface {
	GetGuest(ctx context.Context, id int64) (*models.Guest, error)
	GetInvitation(ctx context.Context, id int64) (*models.Invitation, error)
	RecordRSVP(ctx context.Context, guestID int64, response string) (bool, error)
}

type Resolver struct {
	repo   Repository
	sealer *crypto.Sealer
}

// NewResolver returns a resolver using raw guest ids as tokens.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// NewSealedResolver returns a resolver issuing and accepting only sealed
// tokens.
func NewSealedResolver(repo Repository, secret string) (*Resolver, error) {
	sealer, err := crypto.NewSealer(secret, tokenLabel)
	if err != nil {
		return nil, err
	}
	return &Resolver{repo: repo, sealer: sealer}, nil
}

func (r *Resolver) Sealed() bool {
	return r.sealer != nil
}

// Token returns the link token for a guest.
func (r *Resolver) Token(guestID int64) (string, error) {
	if r.Sealed() {
		return r.sealer.Seal(guestID)
	}
	return strconv.FormatInt(guestID, 10), nil
}

func (r *Resolver) guestID(token string) (int64, error) {
	var (
		id  int64
		err error
	)
	if r.Sealed() {
		id, err = r.sealer.Open(token)
	} else {
		id, err = strconv.ParseInt(token, 10, 64)
	}
	if err != nil || id <= 0 {
		return 0, models.ErrNotFound
	}
	return id, nil
}

// Resolve returns the guest and invitation a token points at, or
// ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.Guest, *models.Invitation, error) {
	id, err := r.guestID(token)
	if err != nil {
		return nil, nil, err
	}
	guest, err := r.repo.GetGuest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	inv, err := r.repo.GetInvitation(ctx, guest.InvitationID)
	if err != nil {
		return nil, nil, fmt.Errorf("invitation of guest %d: %w", guest.ID, err)
	}
	return guest, inv, nil
}

// Submit records response for the token's guest and returns the guest's
// state afterwards. Responses other than "accept" and "decline" change
// nothing and report applied=false.
func (r *Resolver) Submit(ctx context.Context, token, response string) (*models.Guest, *models.Invitation, bool, error) {
	id, err := r.guestID(token)
	if err != nil {
		return nil, nil, false, err
	}
	applied, err := r.repo.RecordRSVP(ctx, id, response)
	if err != nil {
		return nil, nil, false, err
	}
	guest, inv, err := r.Resolve(ctx, token)
	if err != nil {
		return nil, nil, false, err
	}
	if applied {
		zerolog.Ctx(ctx).Info().
			Str("component", "rsvp").
			Int64("guest_id", guest.ID).
			Int64("invitation_id", inv.ID).
			Str("rsvp", string(guest.RSVP)).
			Msg("rsvp recorded")
	}
	return guest, inv, applied, nil
}

// IsNotFound reports whether err means the token matched no guest.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
