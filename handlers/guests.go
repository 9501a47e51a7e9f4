package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"evite/auth"
	"evite/models"
)

type rsvpSummary struct {
	Accepted, Declined, Pending int
}

func summarize(guests []models.Guest) rsvpSummary {
	var sum rsvpSummary
	for _, g := range guests {
		switch g.RSVP {
		case models.RSVPAccepted:
			sum.Accepted++
		case models.RSVPDeclined:
			sum.Declined++
		default:
			sum.Pending++
		}
	}
	return sum
}

// guestPage renders page with the {id} invitation and its guests.
func (s *Server) guestPage(w http.ResponseWriter, r *http.Request, page, deniedKey string) {
	inv, ok := s.ownedInvitation(w, r, deniedKey)
	if !ok {
		return
	}
	guests, err := s.Store.ListGuests(r.Context(), inv.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.renderTemplate(w, r, page, map[string]any{
		"Invitation": inv,
		"Guests":     guests,
		"Summary":    summarize(guests),
	})
}

func (s *Server) RSVPStatusHandler(w http.ResponseWriter, r *http.Request) {
	s.guestPage(w, r, "rsvp_status.html", "DeniedRSVPStatus")
}

func (s *Server) ViewRSVPsHandler(w http.ResponseWriter, r *http.Request) {
	s.guestPage(w, r, "view_rsvps.html", "DeniedViewRSVPs")
}

func (s *Server) ManageGuestsHandler(w http.ResponseWriter, r *http.Request) {
	s.guestPage(w, r, "manage_guests.html", "DeniedManageGuests")
}

// AddGuestHandler adds a single guest. Unlike the bulk import on creation,
// the email address is stored as typed.
func (s *Server) AddGuestHandler(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.ownedInvitation(w, r, "DeniedManageGuests")
	if !ok {
		return
	}
	back := fmt.Sprintf("/manage_guests/%d", inv.ID)

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	if name == "" || email == "" {
		s.flash(w, r, auth.FlashError, "GuestFieldsRequired")
		redirect(w, r, back)
		return
	}
	if _, err := s.Store.AddGuest(r.Context(), inv.ID, name, email); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.flash(w, r, auth.FlashSuccess, "GuestAdded")
	redirect(w, r, back)
}

func (s *Server) RemoveGuestHandler(w http.ResponseWriter, r *http.Request) {
	guestID, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	user := auth.CurrentUser(r.Context())
	invitationID, err := s.Store.RemoveGuest(r.Context(), guestID, user.ID)
	if err != nil {
		s.fail(w, r, err, "DeniedRemoveGuest")
		return
	}
	s.flash(w, r, auth.FlashSuccess, "GuestRemoved")
	redirect(w, r, fmt.Sprintf("/manage_guests/%d", invitationID))
}

func (s *Server) RSVPPageHandler(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	guest, inv, err := s.RSVP.Resolve(r.Context(), token)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.renderRSVP(w, r, token, guest, inv)
}

// RSVPHandler records a guest's answer. Unrecognised answers re-display the
// page unchanged.
func (s *Server) RSVPHandler(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	guest, inv, applied, err := s.RSVP.Submit(r.Context(), token, r.FormValue("response"))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if applied {
		s.flash(w, r, auth.FlashSuccess, "RSVPThanks")
		redirect(w, r, "/rsvp/"+url.PathEscape(token))
		return
	}
	s.renderRSVP(w, r, token, guest, inv)
}

func (s *Server) renderRSVP(w http.ResponseWriter, r *http.Request, token string, guest *models.Guest, inv *models.Invitation) {
	s.renderTemplate(w, r, "rsvp.html", map[string]any{
		"Token":      token,
		"Guest":      guest,
		"Invitation": inv,
	})
}
