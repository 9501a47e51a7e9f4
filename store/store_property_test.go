package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"evite/models"
)

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	return parameters
}

func countRows(t *testing.T, s *Store, query string, args ...any) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// Deleting an invitation removes it together with every guest row that
// references it, and leaves other invitations' guests alone.
func TestDeleteInvitationCascades(t *testing.T) {
	s := newTestStore(t)
	owner := createUser(t, s)

	properties := gopter.NewProperties(propertyParameters())
	properties.Property("no guest survives its invitation", prop.ForAll(
		func(guests, bystanders int) bool {
			ctx := context.Background()
			inv := createInvitation(t, s, owner.ID)
			other := createInvitation(t, s, owner.ID)
			for i := 0; i < guests; i++ {
				if _, err := s.AddGuest(ctx, inv.ID, fmt.Sprintf("g%d", i), "g@example.com"); err != nil {
					t.Logf("add guest: %v", err)
					return false
				}
			}
			for i := 0; i < bystanders; i++ {
				s.AddGuest(ctx, other.ID, "b", "b@example.com")
			}

			if err := s.DeleteInvitation(ctx, inv.ID, owner.ID); err != nil {
				t.Logf("delete: %v", err)
				return false
			}
			if _, err := s.GetInvitation(ctx, inv.ID); !errors.Is(err, models.ErrNotFound) {
				return false
			}
			dangling := countRows(t, s,
				`SELECT COUNT(*) FROM guest g LEFT JOIN invitation i ON i.id = g.invitation_id WHERE i.id IS NULL`)
			remaining := countRows(t, s, `SELECT COUNT(*) FROM guest WHERE invitation_id = ?`, other.ID)
			return dangling == 0 && remaining == bystanders
		},
		gen.IntRange(0, 8),
		gen.IntRange(0, 3),
	))
	properties.TestingRun(t)
}

// A requester that does not own an invitation can neither view, mutate nor
// delete it or its guests, and the attempt changes nothing.
func TestNonOwnerIsDenied(t *testing.T) {
	s := newTestStore(t)
	owner := createUser(t, s)
	intruder := createUser(t, s)

	properties := gopter.NewProperties(propertyParameters())
	properties.Property("non-owner operations fail closed", prop.ForAll(
		func(name, location string) bool {
			ctx := context.Background()
			inv := createInvitation(t, s, owner.ID)
			g, _ := s.AddGuest(ctx, inv.ID, "Guest", "guest@example.com")

			if _, err := s.GetOwnedInvitation(ctx, inv.ID, intruder.ID); !errors.Is(err, models.ErrPermissionDenied) {
				return false
			}
			_, err := s.UpdateInvitation(ctx, inv.ID, models.InvitationFields{
				EventName: "x" + name, EventDate: "2030-01-01", Location: "y" + location,
			}, intruder.ID)
			if !errors.Is(err, models.ErrPermissionDenied) {
				return false
			}
			if err := s.DeleteInvitation(ctx, inv.ID, intruder.ID); !errors.Is(err, models.ErrPermissionDenied) {
				return false
			}
			if _, err := s.RemoveGuest(ctx, g.ID, intruder.ID); !errors.Is(err, models.ErrPermissionDenied) {
				return false
			}

			after, err := s.GetInvitation(ctx, inv.ID)
			if err != nil {
				return false
			}
			guests, _ := s.ListGuests(ctx, inv.ID)
			unchanged := after.EventName == inv.EventName &&
				after.Location == inv.Location &&
				after.EventDate.Equal(inv.EventDate)
			return unchanged && len(guests) == 1 && guests[0].ID == g.ID
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))
	properties.TestingRun(t)
}

// With N guests of which M have answered, ListUnanswered returns N-M guests.
func TestListUnansweredCount(t *testing.T) {
	s := newTestStore(t)
	owner := createUser(t, s)

	properties := gopter.NewProperties(propertyParameters())
	properties.Property("unanswered = total - responded", prop.ForAll(
		func(responses []int) bool {
			ctx := context.Background()
			inv := createInvitation(t, s, owner.ID)
			answered := 0
			for i, r := range responses {
				g, err := s.AddGuest(ctx, inv.ID, fmt.Sprintf("g%d", i), "g@example.com")
				if err != nil {
					return false
				}
				switch r {
				case 1:
					s.RecordRSVP(ctx, g.ID, "accept")
					answered++
				case 2:
					s.RecordRSVP(ctx, g.ID, "decline")
					answered++
				case 3:
					s.RecordRSVP(ctx, g.ID, "unsure")
				}
			}

			unanswered, err := s.ListUnanswered(ctx, inv.ID)
			if err != nil {
				return false
			}
			for _, g := range unanswered {
				if g.Answered() || g.RSVPDate != nil {
					return false
				}
			}
			return len(unanswered) == len(responses)-answered
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))
	properties.TestingRun(t)
}
