package invite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"evite/db"
	"evite/models"
	"evite/store"
)

type recordingNotifier struct {
	sent []string
	fail map[string]bool
}

func (n *recordingNotifier) SendInvitation(ctx context.Context, inv models.Invitation, g models.Guest) bool {
	n.sent = append(n.sent, g.Email)
	return !n.fail[g.Email]
}

func newTestStore(t *testing.T) (*store.Store, *models.User) {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "invite.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	s := store.New(conn)
	owner := &models.User{Username: "host", Email: "host@example.com", PasswordHash: "x"}
	if err := s.CreateUser(context.Background(), owner); err != nil {
		t.Fatal(err)
	}
	return s, owner
}

var partyFields = models.InvitationFields{EventName: "Party", EventDate: "2025-08-01", Location: "Home"}

func TestParseGuestList(t *testing.T) {
	got := ParseGuestList("Alice, alice@example.com\nBob,bob@x\nCarol, carol@example.com,extra")
	want := []Candidate{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "Carol", Email: "carol@example.com"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseGuestListEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		blob  string
		count int
	}{
		{"empty", "", 0},
		{"blank lines", "\n\n  \n", 0},
		{"single field", "alice@example.com", 0},
		{"two pairs on one line", "A, a@x.com, B, b@y.org", 2},
		{"windows newlines", "A, a@x.com\r\nB, b@y.org\r\n", 2},
		{"embedded at", "A, a@b@c.com", 0},
		{"no dot after at", "A, a@localhost", 0},
		{"blank name", ", alice@example.com\n   ,bob@example.org", 0},
		{"blank name beside a full pair", ", a@x.com, B, b@y.org", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseGuestList(tt.blob); len(got) != tt.count {
				t.Errorf("got %d candidates (%+v), want %d", len(got), got, tt.count)
			}
		})
	}
}

func TestCreateInvitationImportsAndNotifies(t *testing.T) {
	s, owner := newTestStore(t)
	n := &recordingNotifier{fail: map[string]bool{"carol@example.com": true}}
	svc := NewService(s, n)

	inv, res, err := svc.CreateInvitation(context.Background(), owner.ID, partyFields,
		"Alice, alice@example.com\nBob,bob@x\nCarol, carol@example.com,extra")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Guests) != 2 || res.Sent != 1 || len(res.Failed) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	// Carol's email failed but her row stays.
	guests, err := s.ListGuests(context.Background(), inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(guests) != 2 || guests[0].Name != "Alice" || guests[1].Name != "Carol" {
		t.Errorf("unexpected stored guests %+v", guests)
	}
	for _, g := range guests {
		if g.RSVP != models.RSVPPending || g.RSVPDate != nil {
			t.Errorf("new guest %s should be pending", g.Name)
		}
	}
	if len(n.sent) != 2 {
		t.Errorf("expected one send attempt per guest, got %v", n.sent)
	}
}

func TestCreateInvitationValidationSendsNothing(t *testing.T) {
	s, owner := newTestStore(t)
	n := &recordingNotifier{}
	svc := NewService(s, n)

	bad := partyFields
	bad.EventDate = "01/08/2025"
	_, _, err := svc.CreateInvitation(context.Background(), owner.ID, bad, "Alice, alice@example.com")
	if !errors.Is(err, models.ErrInvalidDateFormat) {
		t.Fatalf("expected ErrInvalidDateFormat, got %v", err)
	}
	if len(n.sent) != 0 {
		t.Error("no email may be sent for a rejected invitation")
	}
	invs, _ := s.ListInvitations(context.Background(), owner.ID)
	if len(invs) != 0 {
		t.Error("rejected invitation was stored")
	}
}

func TestImportCountMatchesValidPairs(t *testing.T) {
	s, owner := newTestStore(t)
	svc := NewService(s, &recordingNotifier{})
	inv, err := s.CreateInvitation(context.Background(), owner.ID, partyFields)
	if err != nil {
		t.Fatal(err)
	}

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("every valid line creates exactly one guest", prop.ForAll(
		func(valid, invalid int) bool {
			blob := ""
			for i := 0; i < valid; i++ {
				blob += "Guest, guest@example.com\n"
			}
			for i := 0; i < invalid; i++ {
				blob += "Nobody, not-an-email\n, anon@example.com\n"
			}
			before, _ := s.ListGuests(context.Background(), inv.ID)
			res, err := svc.ImportGuests(context.Background(), inv, blob)
			if err != nil {
				return false
			}
			after, _ := s.ListGuests(context.Background(), inv.ID)
			return len(res.Guests) == valid && len(after)-len(before) == valid && res.Sent == valid
		},
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
	))
	properties.TestingRun(t)
}
