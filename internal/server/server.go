// Package server wires the application together: router, middleware, route
// definitions, and graceful shutdown. It is the composition root — every
// dependency chain (DB → repository → service → handler) is assembled here,
// so main.go stays minimal.
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

	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/config"
	"github.com/sakif/snippet-hub/internal/handler"
	"github.com/sakif/snippet-hub/internal/highlight"
	"github.com/sakif/snippet-hub/internal/middleware"
	sqliteRepo "github.com/sakif/snippet-hub/internal/repository/sqlite"
	"github.com/sakif/snippet-hub/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown (the database connection in particular).
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency graph and registers every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and the route tree.
//
// Middleware order matters: RequestID and RealIP enrich the request,
// Recoverer turns panics into 500s, and the logger sees all of it.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Shared infrastructure.
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	engine := highlight.New()

	// Services. The sqlite.DB value implements every repository interface.
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	snippetService := service.NewSnippetService(s.db, s.db, s.db, engine, engine, s.logger)
	sourceService := service.NewSourceCodeService(s.db, s.logger)
	tagService := service.NewTagService(s.db, s.logger)

	// Handlers.
	userHandler := handler.NewUserHandler(authService, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, sourceService, s.logger)
	sourceHandler := handler.NewSourceCodeHandler(sourceService, snippetService, s.logger)
	tagHandler := handler.NewTagHandler(tagService, s.logger)
	indexHandler := handler.NewIndexHandler(engine, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Get("/", indexHandler.HandleIndex)

	// GitHub OAuth is optional: without credentials the routes simply don't
	// exist and password auth carries the whole load.
	if s.cfg.GitHubEnabled() {
		github := auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, s.cfg.GitHubCallbackURL)
		authHandler := handler.NewAuthHandler(github, authService, s.logger)
		s.router.Route("/auth/github", func(r chi.Router) {
			r.Get("/login", authHandler.HandleGitHubLogin)
			r.Get("/callback", authHandler.HandleGitHubCallback)
		})
	} else {
		s.logger.Info("GitHub OAuth disabled (no client credentials configured)")
	}
	s.router.Post("/auth/logout", userHandler.HandleLogout)

	s.router.Route("/api/user", func(r chi.Router) {
		r.Post("/create", userHandler.HandleRegister)
		r.Post("/token", userHandler.HandleToken)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", userHandler.HandleListUsers)
			r.Get("/me", userHandler.HandleMe)
			r.Patch("/me", userHandler.HandleUpdateMe)
			r.Put("/me", userHandler.HandleUpdateMe)
		})
	})

	s.router.Route("/api/snippet", func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippetHandler.HandleList)
			r.Post("/", snippetHandler.HandleCreate)
			r.Get("/{id}", snippetHandler.HandleGet)
			r.Patch("/{id}", snippetHandler.HandleUpdate)
			r.Put("/{id}", snippetHandler.HandleUpdate)
			r.Delete("/{id}", snippetHandler.HandleDelete)
		})

		r.Route("/source_codes", func(r chi.Router) {
			r.Get("/", sourceHandler.HandleList)
			r.Get("/{id}", sourceHandler.HandleGet)
			r.Patch("/{id}", sourceHandler.HandleUpdate)
			r.Put("/{id}", sourceHandler.HandleUpdate)
			r.Delete("/{id}", sourceHandler.HandleDelete)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tagHandler.HandleList)
			r.Post("/", tagHandler.HandleCreate)
			r.Get("/{id}", tagHandler.HandleGet)
			r.Patch("/{id}", tagHandler.HandleUpdate)
			r.Put("/{id}", tagHandler.HandleUpdate)
			r.Delete("/{id}", tagHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s),
// close the database (flushes the WAL, releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)),
			slog.String("database", s.cfg.DBPath),
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
