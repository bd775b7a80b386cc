// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where handlers,
// middleware and routes are connected. Keeping it out of main.go makes the
// setup testable and keeps main minimal.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go reads config → server.New() creates:
//	  sqlite.DB → SyncService / RepoService → GitHubHandler
//	  GitHubProvider + TokenService + github.Client → AuthHandler
//
// Each layer only receives what it needs: services get interfaces
// (repository.RepoMirror, github.API), handlers get services, and nothing
// below the handler layer knows HTTP exists.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/project-tracker/internal/auth"
	"github.com/sakif/project-tracker/internal/github"
	"github.com/sakif/project-tracker/internal/handler"
	"github.com/sakif/project-tracker/internal/middleware"
	sqliteRepo "github.com/sakif/project-tracker/internal/repository/sqlite"
	"github.com/sakif/project-tracker/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs session cookies. When empty, session features are
	// disabled: no OAuth login routes, no /api/me, and sync requires an
	// explicit ownerKey. The API endpoints still work with an
	// Authorization header.
	JWTSecret string

	// GitHub OAuth app credentials. When unset, login routes aren't
	// registered (same degradation as a missing JWTSecret).
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection: graceful shutdown must close it
// to flush the WAL and release the file lock.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config and wires the full
// dependency chain.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /auth/github/login     → redirect to GitHub authorization
//	GET  /auth/github/callback  → complete OAuth, set cookies
//	POST /auth/logout           → clear cookies
//	GET  /api/me                → current account profile (session required)
//	POST /api/github/sync       → reconcile the local mirror
//	POST /api/github/repos      → idempotent create-or-link
//	GET  /api/github/repos      → live repository listing
//
// MIDDLEWARE ORDER MATTERS — middleware executes in the order it's added:
// RequestID → RealIP → Recoverer → request logging.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))

	// The remote client is shared: the same GET /user call serves the OAuth
	// callback, the sync pass, and the create flow.
	remote := github.NewClient()

	syncService := service.NewSyncService(s.db, remote, s.logger)
	repoService := service.NewRepoService(s.db, remote, s.logger)
	githubHandler := handler.NewGitHubHandler(syncService, repoService, s.logger)

	// Session features need a signing secret. Without one the API still
	// works credential-only (Authorization header or a github_token cookie
	// set by other means); there's just no login flow and no session.
	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set — login and sessions are disabled")
	}

	if tokens != nil && s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		provider := auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
		authHandler := handler.NewAuthHandler(provider, tokens, remote, s.db, s.logger)

		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		s.router.Post("/auth/logout", authHandler.HandleLogout)

		s.router.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(tokens))
			r.Get("/api/me", authHandler.HandleMe)
		})
	} else if tokens != nil {
		s.logger.Warn("GITHUB_CLIENT_ID/SECRET not set — login routes are disabled")
	}

	s.router.Group(func(r chi.Router) {
		// OptionalSession lets a logged-in browser omit the ownerKey on
		// sync; header-only clients pass it explicitly.
		if tokens != nil {
			r.Use(auth.OptionalSession(tokens))
		}
		r.Post("/api/github/sync", githubHandler.HandleSync)
		r.Post("/api/github/repos", githubHandler.HandleCreateRepo)
		r.Get("/api/github/repos", githubHandler.HandleListRepos)
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout) — a sync pass in
//     flight gets to complete its writes
//  3. Close the database connection (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // a full sync of a large account takes a while
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
