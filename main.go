package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog"

	"evite/auth"
	"evite/config"
	"evite/db"
	"evite/handlers"
	"evite/i18n"
	"evite/invite"
	"evite/logging"
	"evite/notify"
	"evite/rsvp"
	"evite/store"
	"evite/uploads"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	path := *configPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == "config.json" {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		l := logging.New(os.Stderr, "info", "console")
		l.Fatal().Err(err).Msg("loading config")
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With().Str("app", cfg.AppName).Logger()
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	if cfg.GeneratedSessionKey {
		logger.Warn().Msg("no session_key configured, generated a random one: sessions will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer conn.Close()
	st := store.New(conn)

	catalog, err := i18n.Embedded()
	if err != nil {
		return err
	}

	sender, err := notify.NewSender(cfg.Mail, logger)
	if err != nil {
		return err
	}
	if cfg.Mail.Host == "" {
		logger.Warn().Msg("no mail host configured, emails are only logged")
	}

	resolver := rsvp.NewResolver(st)
	if cfg.RSVP.SealedTokens {
		if resolver, err = rsvp.NewSealedResolver(st, cfg.SessionKey); err != nil {
			return err
		}
	}
	dispatcher := notify.NewDispatcher(sender, notify.Options{
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Mail.Timeout.Duration,
		Token:    resolver.Token,
		AssetURL: func(p string) string { return cfg.AssetURL(p, true) },
	})

	uploader, err := uploads.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}

	srv, err := handlers.NewServer(handlers.Deps{
		Config:      cfg,
		Store:       st,
		Sessions:    auth.NewSessions(cfg.SessionKey, cfg.SecureCookies, st),
		Credentials: auth.NewCredentials(st),
		Invites:     invite.NewService(st, dispatcher),
		Notifier:    dispatcher,
		RSVP:        resolver,
		Uploads:     uploader,
		Catalog:     catalog,
	})
	if err != nil {
		return err
	}

	csrfKey := sha256.Sum256([]byte(cfg.SessionKey + "csrf"))
	csrfMiddleware := csrf.Protect(
		csrfKey[:],
		csrf.Secure(cfg.SecureCookies),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			zerolog.Ctx(r.Context()).Warn().Err(csrf.FailureReason(r)).Msg("csrf check failed")
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})),
	)
	handler := csrfMiddleware(srv.Routes())
	if !cfg.SecureCookies {
		protected := handler
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           logging.Middleware(logger)(handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		// Creating an invitation sends one email per guest inside the request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpSrv.Addr).Str("base_url", cfg.BaseURL).Msg("server starting")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
