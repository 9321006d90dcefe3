// Package server is the composition root: it opens the database, builds the
// services and handlers, and mounts them on one chi router.
//
// DEPENDENCY FLOW:
//
//	config.Config → sqlite.DB → repositories
//	repositories + events.Hub + auth → services → handlers → routes
//
// Each layer receives only what it needs. Handlers never see the database
// and services never see HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/notebook/internal/auth"
	"github.com/sakif/notebook/internal/config"
	"github.com/sakif/notebook/internal/events"
	"github.com/sakif/notebook/internal/handler"
	"github.com/sakif/notebook/internal/middleware"
	sqliteRepo "github.com/sakif/notebook/internal/repository/sqlite"
	"github.com/sakif/notebook/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	hub    *events.Hub
}

// New opens the database at cfg.DBPath and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		hub:    events.NewHub(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown; tests that never
// call Start use it directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes mounts:
//
//	GET  /healthz
//	GET  /shared/{id}                 public HTML page
//	POST /shared/{id}/unlock          public HTML unlock form
//	/api/shared/...                   public JSON (read, lock check, unlock, views)
//	/auth/...                         GitHub sign-in          (auth enabled only)
//	/api/...                          owner API behind JWT    (auth enabled only)
//
// Middleware order: RequestID, RealIP, Logger, Recoverer. Recoverer runs
// inside Logger so a recovered panic is still logged as a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	notes := s.db.Notes()
	analyticsRepo := s.db.Analytics()
	users := s.db.Users()

	passwords := auth.NewPasswordService(s.config.BcryptCost)
	noteService := service.NewNoteService(notes, analyticsRepo, passwords, s.hub, s.logger)
	shareService := service.NewShareService(notes, analyticsRepo, users, s.hub, s.logger)
	analyticsService := service.NewAnalyticsService(notes, analyticsRepo, s.logger)
	prefsService := service.NewPreferencesService(s.db.Preferences(), s.logger)

	noteHandler := handler.NewNoteHandler(noteService, s.logger)
	shareHandler := handler.NewShareHandler(shareService, noteService, s.logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, s.logger)
	prefsHandler := handler.NewPreferencesHandler(prefsService, s.logger)
	eventsHandler := handler.NewEventsHandler(s.hub, s.logger)
	pageHandler, err := handler.NewSharedPageHandler(shareService, noteService, s.config.PublicBaseURL, s.logger)
	if err != nil {
		return fmt.Errorf("creating shared page handler: %w", err)
	}

	s.router.Get("/healthz", s.handleHealth)

	s.router.Get("/shared/{id}", pageHandler.HandleSharedPage)
	s.router.Post("/shared/{id}/unlock", pageHandler.HandleUnlockForm)

	s.router.Route("/api/shared/{id}", func(r chi.Router) {
		r.Get("/", shareHandler.HandleGetShared)
		r.Get("/lock", shareHandler.HandleCheckLock)
		r.Post("/unlock", shareHandler.HandleUnlockShared)
		r.Post("/views", shareHandler.HandleTrackView)
	})

	if !s.config.AuthEnabled() {
		s.logger.Warn("JWT_SECRET not set: sign-in and the note API are disabled; only shared notes are served")
		return nil
	}

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	if s.config.GitHubClientID == "" {
		s.logger.Warn("GITHUB_CLIENT_ID not set: GitHub sign-in will fail")
	}
	github := auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	authService := service.NewAuthService(users, tokens, s.logger)
	authHandler := handler.NewAuthHandler(github, authService, tokens.TTL(), s.config.CookieSecure, s.logger)

	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/api/me", authHandler.HandleMe)
		r.Get("/api/events", eventsHandler.HandleEvents)
		r.Get("/api/tags", noteHandler.HandleTags)
		r.Get("/api/preferences", prefsHandler.HandleGet)
		r.Put("/api/preferences", prefsHandler.HandleUpdate)
		r.Get("/api/users/{userID}/analytics", analyticsHandler.HandleUserSummary)

		r.Route("/api/notes", func(r chi.Router) {
			r.Get("/", noteHandler.HandleList)
			r.Post("/", noteHandler.HandleCreate)
			r.Get("/search", noteHandler.HandleSearch)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", noteHandler.HandleGet)
				r.Patch("/", noteHandler.HandleUpdate)
				r.Delete("/", noteHandler.HandleDelete)
				r.Post("/archive", noteHandler.HandleToggleArchive)
				r.Post("/lock", noteHandler.HandleLock)
				r.Post("/unlock", noteHandler.HandleUnlock)
				r.Post("/share", shareHandler.HandleToggleShare)
				r.Post("/share-link", shareHandler.HandleShareLink)
				r.Get("/analytics", analyticsHandler.HandleNoteAnalytics)
				r.Delete("/analytics", analyticsHandler.HandleDeleteNoteAnalytics)
			})
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the database.
//
// WriteTimeout applies to ordinary responses; the SSE handler lifts it for
// its own stream. Shutdown does not cancel request contexts by itself, so
// open event streams are ended through the base context.
func (s *Server) Start() error {
	defer s.db.Close()

	baseCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(stopStreams)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("auth", s.config.AuthEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
