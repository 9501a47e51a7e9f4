package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"evite/db"
	"evite/models"
	"evite/store"
)

func TestDumpAndReset(t *testing.T) {
	conn, err := db.Open(filepath.Join(t.TempDir(), "evite.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	st := store.New(conn)

	var out bytes.Buffer
	if err := run(ctx, "dump", conn, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "No invitations found\n" {
		t.Errorf("empty dump: %q", out.String())
	}

	u := &models.User{Username: "host", Email: "host@example.com", PasswordHash: "h"}
	if err := st.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	party, err := st.CreateInvitation(ctx, u.ID, models.InvitationFields{EventName: "Party", EventDate: "2026-12-31", Location: "Home"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateInvitation(ctx, u.ID, models.InvitationFields{EventName: "Brunch", EventDate: "2027-01-01", Location: "Cafe"}); err != nil {
		t.Fatal(err)
	}
	g, err := st.AddGuest(ctx, party.ID, "Alice", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.RecordRSVP(ctx, g.ID, "accept"); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := run(ctx, "dump", conn, &out); err != nil {
		t.Fatal(err)
	}
	want := "Invitation: Party (ID: 1)\n" +
		"  - Guest: Alice, Email: alice@example.com, RSVP: accepted\n" +
		"Invitation: Brunch (ID: 2)\n" +
		"  No guests for this invitation\n"
	if out.String() != want {
		t.Errorf("dump:\n%s\nwant:\n%s", out.String(), want)
	}

	if err := run(ctx, "reset", conn, &out); err != nil {
		t.Fatal(err)
	}
	if n, err := st.CountUsers(ctx); err != nil || n != 0 {
		t.Errorf("reset left %d users (%v)", n, err)
	}
	out.Reset()
	run(ctx, "dump", conn, &out)
	if !strings.HasPrefix(out.String(), "No invitations") {
		t.Errorf("dump after reset: %q", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	err := run(context.Background(), "migrate-all", nil, nil)
	if !errors.Is(err, errUnknownCommand) {
		t.Errorf("expected errUnknownCommand, got %v", err)
	}
}
