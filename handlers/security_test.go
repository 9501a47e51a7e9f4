package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
)

func TestNonOwnerIsRedirectedWithoutSideEffects(t *testing.T) {
	e := newTestEnv(t)
	_, owner := e.login(t, "owner")
	intruder, _ := e.login(t, "intruder")

	inv := e.createInvitation(t, owner.ID)
	guest, err := e.store.AddGuest(context.Background(), inv.ID, "Gina", "gina@example.com")
	if err != nil {
		t.Fatal(err)
	}
	id := strconv.FormatInt(inv.ID, 10)

	gets := map[string]string{
		"/edit_invitation/" + id:    "You do not have permission to edit this invitation.",
		"/preview_invitation/" + id: "You do not have permission to view this invitation.",
		"/send_invitations/" + id:   "You do not have permission to send invitations for this event.",
		"/rsvp_status/" + id:        "You do not have permission to view RSVP status for this event.",
		"/manage_guests/" + id:      "You do not have permission to manage guests for this invitation.",
		"/view_rsvps/" + id:         "You do not have permission to view RSVPs for this invitation.",
		"/send_reminders/" + id:     "You do not have permission to send reminders for this invitation.",
	}
	for path, flash := range gets {
		resp, _ := e.get(t, intruder, path)
		expectRedirect(t, resp, "/")
		_, body := e.get(t, intruder, "/")
		if !strings.Contains(body, flash) {
			t.Errorf("GET %s: missing flash %q", path, flash)
		}
	}

	posts := map[string]url.Values{
		"/edit_invitation/" + id:   {"event_name": {"Hijacked"}, "event_date": {"2030-01-01"}, "location": {"Nowhere"}},
		"/delete_invitation/" + id: nil,
		"/manage_guests/" + id:     {"name": {"Mallory"}, "email": {"m@evil.com"}},
		"/remove_guest/" + strconv.FormatInt(guest.ID, 10): nil,
	}
	for path, form := range posts {
		resp, _ := e.post(t, intruder, path, form)
		expectRedirect(t, resp, "/")
	}

	got, err := e.store.GetInvitation(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("invitation gone after foreign delete: %v", err)
	}
	if got.EventName != inv.EventName || !got.EventDate.Equal(inv.EventDate) {
		t.Errorf("invitation modified by non-owner: %+v", got)
	}
	guests, _ := e.store.ListGuests(context.Background(), inv.ID)
	if len(guests) != 1 || guests[0].ID != guest.ID {
		t.Errorf("guest list modified by non-owner: %+v", guests)
	}
	if n := len(e.sender.messages()); n != 0 {
		t.Errorf("non-owner triggered %d emails", n)
	}
}

func TestMissingRecordsAre404(t *testing.T) {
	e := newTestEnv(t)
	c, _ := e.login(t, "host")

	for _, path := range []string{
		"/preview_invitation/999",
		"/preview_invitation/abc",
		"/edit_invitation/0",
		"/manage_guests/999",
		"/rsvp/999",
		"/rsvp/not-a-token",
	} {
		resp, _ := e.get(t, c, path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, resp.StatusCode)
		}
	}

	for _, path := range []string{"/delete_invitation/999", "/remove_guest/999", "/rsvp/999"} {
		resp, _ := e.post(t, c, path, url.Values{"response": {"accept"}})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("POST %s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}
