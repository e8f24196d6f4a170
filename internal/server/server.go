// Package server wires the application together: database, services,
// handlers, routes, and graceful shutdown. It is the composition root —
// every concrete type is chosen here, and the layers below see only
// interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/thinkfirst/coderunner/internal/auth"
	"github.com/thinkfirst/coderunner/internal/executor/host"
	"github.com/thinkfirst/coderunner/internal/handler"
	"github.com/thinkfirst/coderunner/internal/middleware"
	sqliteRepo "github.com/thinkfirst/coderunner/internal/repository/sqlite"
	"github.com/thinkfirst/coderunner/internal/service"
)

// Config holds server configuration. main fills it from the environment;
// nothing below this layer reads env vars.
type Config struct {
	Port               int
	DBPath             string
	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the resources behind it. The database
// connection is closed on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	engine *host.Executor
}

// New assembles the dependency chain: database → repositories → services →
// handlers → routes. The execution engine is built by the caller so the
// same construction serves other entry points.
func New(cfg Config, engine *host.Executor, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		engine: engine,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the service and handler layers,
// and registers every route.
//
// Route map:
//
//	GET    /                      service banner
//	GET    /health                status, languages, in-flight, counters
//	POST   /auth/register         local account signup
//	POST   /auth/login            local account login
//	POST   /auth/logout           clear the token cookie
//	GET    /auth/github/login     OAuth redirect (when configured)
//	GET    /auth/github/callback  OAuth completion (when configured)
//	GET    /api/languages         canonical ids and aliases
//	POST   /api/execute           run code            (auth required)
//	GET    /api/executions        own history         (auth required)
//	GET    /api/me                own profile         (auth required)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	stats := service.NewStats()
	executions := service.NewExecutionService(s.engine, s.db, stats, s.logger)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)

	executeHandler := handler.NewExecuteHandler(executions, s.logger)
	healthHandler := handler.NewHealthHandler(s.engine, stats)

	github := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)
	authHandler := handler.NewAuthHandler(github, authService, s.logger)

	s.router.Get("/", healthHandler.HandleRoot)
	s.router.Get("/health", healthHandler.HandleHealth)

	// Local accounts always work; the GitHub routes stay dark without an
	// OAuth app configured.
	githubEnabled := s.config.GitHubClientID != "" && s.config.GitHubClientSecret != ""
	if !githubEnabled {
		s.logger.Info("GitHub login disabled: GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET not set")
	}

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		if githubEnabled {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/languages", healthHandler.HandleLanguages)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/execute", executeHandler.HandleExecute)
			r.Get("/executions", executeHandler.HandleHistory)
			r.Get("/me", authHandler.HandleMe)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	// The write timeout must outlast a worst-case execution — a compile
	// stage and a run stage each using their full budget — or the response
	// for a slow-but-legitimate run would be cut off mid-write.
	writeTimeout := 2*s.engine.StageTimeout() + 15*time.Second

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.Int("languages", len(s.engine.Languages())),
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
