package handlers

import (
	"errors"
	"net/http"

	"github.com/dchest/captcha"
	"github.com/rs/zerolog"

	"evite/auth"
	"evite/models"
)

func (s *Server) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	if s.Sessions.UserID(r) != 0 {
		redirect(w, r, "/")
		return
	}
	s.renderTemplate(w, r, "login.html", nil)
}

func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.Credentials.Verify(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if errors.Is(err, models.ErrInvalidCredentials) {
		s.flash(w, r, auth.FlashError, "InvalidCredentials")
		redirect(w, r, "/login")
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	if err := s.Sessions.Login(w, r, user); err != nil {
		s.serverError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Int64("user_id", user.ID).Msg("user logged in")
	redirect(w, r, "/")
}

func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Logout(w, r); err != nil {
		s.serverError(w, r, err)
		return
	}
	redirect(w, r, "/login")
}

func (s *Server) SignupPageHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if s.Config.Captcha {
		data["CaptchaID"] = captcha.New()
	}
	s.renderTemplate(w, r, "signup.html", data)
}

func (s *Server) SignupHandler(w http.ResponseWriter, r *http.Request) {
	if s.Config.Captcha && !captcha.VerifyString(r.FormValue("captcha_id"), r.FormValue("captcha_solution")) {
		s.flash(w, r, auth.FlashError, "CaptchaFailed")
		redirect(w, r, "/signup")
		return
	}

	user, err := s.Credentials.Register(r.Context(),
		r.FormValue("username"), r.FormValue("email"), r.FormValue("password"))
	switch {
	case errors.Is(err, models.ErrDuplicateUsername):
		s.flash(w, r, auth.FlashError, "UsernameAlreadyExists")
	case errors.Is(err, models.ErrDuplicateEmail):
		s.flash(w, r, auth.FlashError, "EmailAlreadyExists")
	case errors.Is(err, models.ErrMissingFields):
		s.flash(w, r, auth.FlashError, "SignupFieldsRequired")
	case err != nil:
		s.serverError(w, r, err)
		return
	default:
		zerolog.Ctx(r.Context()).Info().Int64("user_id", user.ID).Msg("account created")
		s.flash(w, r, auth.FlashSuccess, "SignupSuccess")
		redirect(w, r, "/login")
		return
	}
	redirect(w, r, "/signup")
}

func (s *Server) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())
	invitations, err := s.Store.ListInvitations(r.Context(), user.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.renderTemplate(w, r, "dashboard.html", map[string]any{"Invitations": invitations})
}
