package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"evite/auth"
	"evite/models"
	"evite/notify"
	"evite/uploads"
)

// formSlack covers the non-file fields of a multipart form on top of the
// upload limit.
const formSlack = 1 << 20

func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) {
	if s.Config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUploadBytes+formSlack)
	}
}

// parseForm accepts both multipart and urlencoded bodies.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	s.limitBody(w, r)
	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return models.ErrFileTooLarge
	}
	return err
}

func invitationFields(r *http.Request) models.InvitationFields {
	return models.InvitationFields{
		EventName:   r.FormValue("event_name"),
		EventDate:   r.FormValue("event_date"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Theme:       r.FormValue("theme"),
	}.Normalize()
}

func validationKey(err error) (string, bool) {
	switch {
	case errors.Is(err, models.ErrInvalidDateFormat):
		return "InvalidDateFormat", true
	case errors.Is(err, models.ErrMissingFields):
		return "InvitationFieldsRequired", true
	case errors.Is(err, models.ErrFileTooLarge):
		return "FileTooLarge", true
	}
	return "", false
}

// storeImage saves the optional "image" file of the form. It returns "" when
// no file was submitted; a form may instead carry an "image_path" returned
// earlier by /upload_image.
func (s *Server) storeImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return uploadedPath(r.FormValue("image_path")), nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()
	return s.Uploads.Store(r.Context(), header.Filename, file)
}

// uploadedPath accepts only paths of the shape Uploader.Store returns.
func uploadedPath(p string) string {
	name, ok := strings.CutPrefix(p, uploads.Prefix+"/")
	if !ok || name == "" || uploads.SanitizeFilename(name) != name {
		return ""
	}
	return p
}

func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, err error, back string) {
	zerolog.Ctx(r.Context()).Warn().Err(err).Msg("image upload failed")
	if errors.Is(err, models.ErrFileTooLarge) {
		s.flash(w, r, auth.FlashError, "FileTooLarge")
	} else {
		s.flash(w, r, auth.FlashError, "UploadFailed")
	}
	redirect(w, r, back)
}

func (s *Server) flashReport(w http.ResponseWriter, r *http.Request, key string, rep notify.Report) {
	s.flash(w, r, auth.FlashSuccess, key, rep.Sent, rep.Attempted)
	if len(rep.Failed) > 0 {
		s.flash(w, r, auth.FlashError, "DeliveryFailed", strings.Join(rep.Failed, ", "))
	}
}

func (s *Server) CreateInvitationPageHandler(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, r, "create_invitation.html", nil)
}

func (s *Server) CreateInvitationHandler(w http.ResponseWriter, r *http.Request) {
	const back = "/create_invitation"
	if err := s.parseForm(w, r); err != nil {
		s.uploadFailed(w, r, err, back)
		return
	}

	fields := invitationFields(r)
	if _, err := fields.Validate(); err != nil {
		key, _ := validationKey(err)
		s.flash(w, r, auth.FlashError, key)
		redirect(w, r, back)
		return
	}

	imagePath, err := s.storeImage(r)
	if err != nil {
		s.uploadFailed(w, r, err, back)
		return
	}
	fields.ImagePath = imagePath

	user := auth.CurrentUser(r.Context())
	inv, res, err := s.Invites.CreateInvitation(r.Context(), user.ID, fields, r.FormValue("guest_list"))
	if err != nil {
		if key, ok := validationKey(err); ok && inv == nil {
			s.flash(w, r, auth.FlashError, key)
			redirect(w, r, back)
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.flashReport(w, r, "InvitationCreated", res.Report)
	redirect(w, r, "/")
}

func (s *Server) EditInvitationPageHandler(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.ownedInvitation(w, r, "DeniedEdit")
	if !ok {
		return
	}
	s.renderTemplate(w, r, "edit_invitation.html", map[string]any{"Invitation": inv})
}

func (s *Server) EditInvitationHandler(w http.ResponseWriter, r *http.Request) {
	// Ownership is checked before the upload so strangers cannot write files.
	inv, ok := s.ownedInvitation(w, r, "DeniedEdit")
	if !ok {
		return
	}
	back := fmt.Sprintf("/edit_invitation/%d", inv.ID)
	if err := s.parseForm(w, r); err != nil {
		s.uploadFailed(w, r, err, back)
		return
	}

	fields := invitationFields(r)
	if _, err := fields.Validate(); err != nil {
		key, _ := validationKey(err)
		s.flash(w, r, auth.FlashError, key)
		redirect(w, r, back)
		return
	}
	imagePath, err := s.storeImage(r)
	if err != nil {
		s.uploadFailed(w, r, err, back)
		return
	}
	fields.ImagePath = imagePath

	user := auth.CurrentUser(r.Context())
	if _, err := s.Store.UpdateInvitation(r.Context(), inv.ID, fields, user.ID); err != nil {
		if key, ok := validationKey(err); ok {
			s.flash(w, r, auth.FlashError, key)
			redirect(w, r, back)
			return
		}
		s.fail(w, r, err, "DeniedEdit")
		return
	}
	s.flash(w, r, auth.FlashSuccess, "InvitationUpdated")
	redirect(w, r, fmt.Sprintf("/preview_invitation/%d", inv.ID))
}

func (s *Server) DeleteInvitationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	user := auth.CurrentUser(r.Context())
	if err := s.Store.DeleteInvitation(r.Context(), id, user.ID); err != nil {
		s.fail(w, r, err, "DeniedDelete")
		return
	}
	zerolog.Ctx(r.Context()).Info().Int64("invitation_id", id).Msg("invitation deleted")
	s.flash(w, r, auth.FlashSuccess, "InvitationDeleted")
	redirect(w, r, "/")
}

func (s *Server) PreviewInvitationHandler(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.ownedInvitation(w, r, "DeniedView")
	if !ok {
		return
	}
	s.renderTemplate(w, r, "preview_invitation.html", map[string]any{"Invitation": inv})
}

func (s *Server) SendInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.ownedInvitation(w, r, "DeniedSend")
	if !ok {
		return
	}
	guests, err := s.Store.ListGuests(r.Context(), inv.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.flashReport(w, r, "InvitationsSent", s.Notifier.ResendAll(r.Context(), *inv, guests))
	redirect(w, r, "/")
}

func (s *Server) SendRemindersHandler(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.ownedInvitation(w, r, "DeniedReminders")
	if !ok {
		return
	}
	guests, err := s.Store.ListUnanswered(r.Context(), inv.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.flashReport(w, r, "RemindersSent", s.Notifier.SendReminders(r.Context(), *inv, guests))
	redirect(w, r, fmt.Sprintf("/view_rsvps/%d", inv.ID))
}
