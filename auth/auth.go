package auth

import (
	"context"
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"evite/models"
)

const SessionName = "evite-session"

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// UserLoader resolves the user bound to a session.
type UserLoader interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
}

type Sessions struct {
	store *sessions.CookieStore
	users UserLoader
}

// NewSessions derives the cookie signing and encryption keys from secret.
func NewSessions(secret string, secure bool, users UserLoader) *Sessions {
	// Auth key for signing (HMAC)
	authKey := sha256.Sum256([]byte(secret + "auth"))
	// Encryption key for content encryption (AES)
	encKey := sha256.Sum256([]byte(secret + "encryption"))

	store := sessions.NewCookieStore(authKey[:], encKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store, users: users}
}

// session never fails: a cookie that no longer decodes (rotated key) yields a
// fresh session.
func (s *Sessions) session(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("discarding undecodable session cookie")
	}
	return session
}

func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session := s.session(r)
	session.Values["userID"] = user.ID
	return session.Save(r, w)
}

func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session := s.session(r)
	delete(session.Values, "userID")
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// UserID returns the id bound to the request's session, or 0.
func (s *Sessions) UserID(r *http.Request) int64 {
	if id, ok := s.session(r).Values["userID"].(int64); ok {
		return id
	}
	return 0
}

// AddFlash queues a message for the next rendered page. category is
// FlashSuccess or FlashError.
func (s *Sessions) AddFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	session := s.session(r)
	session.AddFlash(message, category)
	if err := session.Save(r, w); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("saving flash")
	}
}

// Flashes pops all queued messages per category.
func (s *Sessions) Flashes(w http.ResponseWriter, r *http.Request) map[string][]string {
	session := s.session(r)
	out := make(map[string][]string)
	for _, category := range []string{FlashSuccess, FlashError} {
		for _, f := range session.Flashes(category) {
			if msg, ok := f.(string); ok {
				out[category] = append(out[category], msg)
			}
		}
	}
	if len(out) > 0 {
		if err := session.Save(r, w); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("clearing flashes")
		}
	}
	return out
}

type ctxKey struct{}

// RequireSession redirects anonymous requests to /login and exposes the
// logged-in user through CurrentUser.
func (s *Sessions) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := s.UserID(r)
		if id == 0 {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		user, err := s.users.UserByID(r.Context(), id)
		if err != nil {
			// account vanished or db error: treat as logged out
			zerolog.Ctx(r.Context()).Warn().Err(err).Int64("user_id", id).Msg("session user not loadable")
			s.Logout(w, r)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, user)
		logger := zerolog.Ctx(ctx).With().Int64("user_id", user.ID).Logger()
		ctx = logger.WithContext(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentUser returns the user set by RequireSession, or nil.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKey{}).(*models.User)
	return u
}

// WithUser is used by tests and handlers that authenticate out of band.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}
