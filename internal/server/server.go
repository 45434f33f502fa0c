// Package server wires the router, middleware, and handlers together and
// owns the process lifecycle: it creates the single shared database handle
// at startup, injects it down the dependency chain, and closes it on
// graceful shutdown.
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

	"github.com/sakif/script-archive/internal/handler"
	"github.com/sakif/script-archive/internal/middleware"
	sqliteRepo "github.com/sakif/script-archive/internal/repository/sqlite"
	"github.com/sakif/script-archive/internal/service"
)

// Config holds the server configuration, loaded from the environment in
// cmd/server.
type Config struct {
	Port           int
	DBPath         string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server owns the router and the database connection. The connection is the
// one shared store handle for the whole process; handlers reach it only
// through the injected service, never through globals.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the dependency chain: sqlite.DB → ScriptService →
// ScriptHandler → routes. The service receives the repository interface,
// the handler receives the service; neither knows about the layers below.
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
	s.setupRoutes()

	return s, nil
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the database handle. Start does this itself; Close exists
// for callers that use Router without Start.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Rate limiting sits after RealIP so buckets key on the real client.
	limiter := middleware.NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)
	s.router.Use(limiter.Handler)

	scriptService := service.NewScriptService(s.db, s.logger)
	scriptHandler := handler.NewScriptHandler(scriptService, s.logger)

	s.router.Route("/scripts", func(r chi.Router) {
		r.Get("/", scriptHandler.HandleList)
		r.Post("/", scriptHandler.HandleCreate)
		// Static segments must win over {id}; chi guarantees that ordering.
		r.Get("/random", scriptHandler.HandleRandom)
		r.Get("/random-multiple", scriptHandler.HandleRandomMultiple)
		r.Post("/batch", scriptHandler.HandleBatch)
		r.Get("/{id}", scriptHandler.HandleGetByID)
		r.Put("/{id}", scriptHandler.HandleUpdate)
		r.Delete("/{id}", scriptHandler.HandleDelete)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
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
			slog.Int("port", s.config.Port),
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
