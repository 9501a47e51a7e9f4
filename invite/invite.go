// Package invite creates invitations together with their initial guest list
// and sends the first round of emails.
package invite

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"evite/models"
	"evite/notify"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// Candidate is one name/email pair accepted from a guest list.
type Candidate struct {
	Name  string
	Email string
}

// ParseGuestList extracts guests from free text. Each line holds one or more
// "name, email" pairs separated by commas. An unpaired trailing field, pairs
// with a blank name and pairs whose email does not look like
// local@domain.tld are skipped.
func ParseGuestList(blob string) []Candidate {
	var out []Candidate
	for _, line := range strings.Split(strings.ReplaceAll(blob, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		for i := 0; i+1 < len(fields); i += 2 {
			name := strings.TrimSpace(fields[i])
			email := strings.TrimSpace(fields[i+1])
			if name == "" || !ValidEmail(email) {
				continue
			}
			out = append(out, Candidate{Name: name, Email: email})
		}
	}
	return out
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type Repository interface {
	CreateInvitation(ctx context.Context, ownerID int64, f models.InvitationFields) (*models.Invitation, error)
	AddGuest(ctx context.Context, invitationID int64, name, email string) (*models.Guest, error)
}

type Notifier interface {
	SendInvitation(ctx context.Context, inv models.Invitation, guest models.Guest) bool
}

type Service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Result lists the guests created by an import and how their emails fared.
type Result struct {
	Guests []models.Guest
	notify.Report
}

// ImportGuests persists every valid guest in blob and emails each one. A
// failed email never removes the guest nor stops the batch; a storage error
// does, returning the guests created so far.
func (s *Service) ImportGuests(ctx context.Context, inv *models.Invitation, blob string) (Result, error) {
	var res Result
	for _, c := range ParseGuestList(blob) {
		g, err := s.repo.AddGuest(ctx, inv.ID, c.Name, c.Email)
		if err != nil {
			return res, fmt.Errorf("add guest %s: %w", c.Email, err)
		}
		res.Guests = append(res.Guests, *g)

		res.Attempted++
		if s.notifier.SendInvitation(ctx, *inv, *g) {
			res.Sent++
		} else {
			res.Failed = append(res.Failed, g.Email)
		}
	}
	return res, nil
}

// CreateInvitation stores a new invitation for owner, then imports guestList.
func (s *Service) CreateInvitation(ctx context.Context, ownerID int64, f models.InvitationFields, guestList string) (*models.Invitation, Result, error) {
	inv, err := s.repo.CreateInvitation(ctx, ownerID, f)
	if err != nil {
		return nil, Result{}, err
	}
	res, err := s.ImportGuests(ctx, inv, guestList)
	if err != nil {
		return inv, res, err
	}

	zerolog.Ctx(ctx).Info().
		Str("component", "invite").
		Int64("invitation_id", inv.ID).
		Int("guests", len(res.Guests)).
		Int("emails_sent", res.Sent).
		Strs("emails_failed", res.Failed).
		Msg("invitation created")
	return inv, res, nil
}
