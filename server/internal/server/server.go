// Package server ties the subscription API components together.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cinemax-app/subscribe/server/internal/api"
	"github.com/cinemax-app/subscribe/server/internal/auth"
	"github.com/cinemax-app/subscribe/server/internal/config"
	"github.com/cinemax-app/subscribe/server/internal/store"
)

// Server is the API process.
type Server struct {
	cfg    *config.Config
	store  store.Store
	auth   *auth.Service
	api    *api.Server
	logger *slog.Logger
}

// New creates a server from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := store.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	authSvc := auth.NewService(cfg.Auth)

	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" {
			logger.Warn("CORS allowed_origins contains wildcard '*', restrict to specific origins in production")
			break
		}
	}

	return &Server{
		cfg:    cfg,
		store:  db,
		auth:   authSvc,
		api:    api.NewServer(db, authSvc, cfg, logger),
		logger: logger.With("component", "server"),
	}, nil
}

// Store returns the underlying store.
func (s *Server) Store() store.Store { return s.store }

// Auth returns the token service.
func (s *Server) Auth() *auth.Service { return s.auth }

// Close releases the store without serving.
func (s *Server) Close() error { return s.store.Close() }

// Run serves HTTP and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.api.StartBackgroundTasks(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", s.cfg.Server.Addr)
		if s.cfg.Server.TLSCert != "" && s.cfg.Server.TLSKey != "" {
			errCh <- srv.ListenAndServeTLS(s.cfg.Server.TLSCert, s.cfg.Server.TLSKey)
		} else {
			s.logger.Warn("TLS not configured, running without encryption (development only)")
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			_ = srv.Close()
		}

		_ = s.store.Close()
		s.logger.Info("shutdown complete")
		return ctx.Err()

	case err := <-errCh:
		_ = s.store.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
