package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/dchest/captcha"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog"

	"evite/auth"
	"evite/config"
	"evite/i18n"
	"evite/invite"
	"evite/models"
	"evite/notify"
	"evite/rsvp"
	"evite/store"
	"evite/uploads"
)

//go:embed templates/*.html
var templateFS embed.FS

// Deps are the collaborators a Server needs. All fields are required.
type Deps struct {
	Config      *config.Config
	Store       *store.Store
	Sessions    *auth.Sessions
	Credentials *auth.Credentials
	Invites     *invite.Service
	Notifier    *notify.Dispatcher
	RSVP        *rsvp.Resolver
	Uploads     *uploads.Uploader
	Catalog     *i18n.Catalog
}

type Server struct {
	Deps
	pages map[string]*template.Template
}

var pageNames = []string{
	"login.html",
	"signup.html",
	"dashboard.html",
	"create_invitation.html",
	"edit_invitation.html",
	"preview_invitation.html",
	"rsvp_status.html",
	"manage_guests.html",
	"view_rsvps.html",
	"rsvp.html",
}

func NewServer(d Deps) (*Server, error) {
	s := &Server{Deps: d, pages: make(map[string]*template.Template)}
	tfs, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(s.funcMap(i18n.DefaultLang)).ParseFS(tfs, "layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		s.pages[name] = t
	}
	return s, nil
}

// Routes returns the application's handler. CSRF protection and request
// logging are layered on by the caller.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /login", s.LoginPageHandler)
	mux.HandleFunc("POST /login", s.LoginHandler)
	mux.HandleFunc("GET /signup", s.SignupPageHandler)
	mux.HandleFunc("POST /signup", s.SignupHandler)
	mux.Handle("GET /logout", s.private(s.LogoutHandler))

	mux.Handle("GET /{$}", s.private(s.DashboardHandler))
	mux.Handle("GET /create_invitation", s.private(s.CreateInvitationPageHandler))
	mux.Handle("POST /create_invitation", s.private(s.CreateInvitationHandler))
	mux.Handle("GET /edit_invitation/{id}", s.private(s.EditInvitationPageHandler))
	mux.Handle("POST /edit_invitation/{id}", s.private(s.EditInvitationHandler))
	mux.Handle("POST /delete_invitation/{id}", s.private(s.DeleteInvitationHandler))
	mux.Handle("GET /preview_invitation/{id}", s.private(s.PreviewInvitationHandler))
	mux.Handle("GET /send_invitations/{id}", s.private(s.SendInvitationsHandler))
	mux.Handle("GET /send_reminders/{id}", s.private(s.SendRemindersHandler))
	mux.Handle("GET /rsvp_status/{id}", s.private(s.RSVPStatusHandler))
	mux.Handle("GET /view_rsvps/{id}", s.private(s.ViewRSVPsHandler))
	mux.Handle("GET /manage_guests/{id}", s.private(s.ManageGuestsHandler))
	mux.Handle("POST /manage_guests/{id}", s.private(s.AddGuestHandler))
	mux.Handle("POST /remove_guest/{id}", s.private(s.RemoveGuestHandler))
	mux.Handle("POST /upload_image", s.private(s.UploadImageHandler))

	mux.HandleFunc("GET /rsvp/{token}", s.RSVPPageHandler)
	mux.HandleFunc("POST /rsvp/{token}", s.RSVPHandler)

	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.Config.PublicDir))))
	if s.Config.Captcha {
		mux.Handle("GET /captcha/", captcha.Server(captcha.StdWidth, captcha.StdHeight))
	}

	return SecurityHeadersMiddleware(mux)
}

func (s *Server) private(h http.HandlerFunc) http.Handler {
	return s.Sessions.RequireSession(h)
}

func (s *Server) funcMap(lang string) template.FuncMap {
	return template.FuncMap{
		"T": func(key string) string {
			return s.Catalog.T(lang, key)
		},
		"status": func(st models.RSVPStatus) string {
			switch st {
			case models.RSVPAccepted:
				return s.Catalog.T(lang, "StatusAccepted")
			case models.RSVPDeclined:
				return s.Catalog.T(lang, "StatusDeclined")
			}
			return s.Catalog.T(lang, "StatusPending")
		},
		"asset": func(path string) string {
			return s.Config.AssetURL(path, false)
		},
		"date": func(t time.Time) string {
			return t.Format(models.DateLayout)
		},
		"answered": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.UTC().Format("2006-01-02 15:04 UTC")
		},
	}
}

func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	lang := s.Catalog.DetectLanguage(r)

	base, ok := s.pages[name]
	if !ok {
		s.serverError(w, r, fmt.Errorf("unknown page %s", name))
		return
	}
	tmpl, err := base.Clone()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	tmpl.Funcs(s.funcMap(lang))

	if data == nil {
		data = map[string]any{}
	}
	data["AppName"] = s.Config.AppName
	data["Lang"] = lang
	data["csrfField"] = csrf.TemplateField(r)
	if user := auth.CurrentUser(r.Context()); user != nil {
		data["User"] = user
	}
	data["Flashes"] = s.Sessions.Flashes(w, r)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.serverError(w, r, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// flash queues a translated message. args, when given, fill the message's
// format verbs.
func (s *Server) flash(w http.ResponseWriter, r *http.Request, category, key string, args ...any) {
	lang := s.Catalog.DetectLanguage(r)
	msg := s.Catalog.T(lang, key)
	if len(args) > 0 {
		msg = s.Catalog.Tf(lang, key, args...)
	}
	s.Sessions.AddFlash(w, r, category, msg)
}

func redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// fail maps repository errors to responses: 404 for missing records, a
// flash plus redirect home for permission errors, 500 otherwise.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, deniedKey string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, models.ErrPermissionDenied):
		zerolog.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("permission denied")
		s.flash(w, r, auth.FlashError, deniedKey)
		redirect(w, r, "/")
	default:
		s.serverError(w, r, err)
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// ownedInvitation loads the {id} invitation for the current user. On failure
// the response has been written and ok is false.
func (s *Server) ownedInvitation(w http.ResponseWriter, r *http.Request, deniedKey string) (*models.Invitation, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	user := auth.CurrentUser(r.Context())
	inv, err := s.Store.GetOwnedInvitation(r.Context(), id, user.ID)
	if err != nil {
		s.fail(w, r, err, deniedKey)
		return nil, false
	}
	return inv, true
}
