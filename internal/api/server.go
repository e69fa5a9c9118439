package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/bondlab/pkg/config"
	"github.com/wonny/bondlab/pkg/logger"
)

// Server serves the bond analytics API.
// ⭐ SSOT: HTTP listener settings come from config.Server only
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	port       string
	env        string
	drainWait  time.Duration
}

// New creates the API server around router.
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		logger:    log.WithComponent("api"),
		port:      cfg.Port,
		env:       cfg.Env,
		drainWait: cfg.Server.ShutdownTimeout,
	}
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"port":          s.port,
		"env":           s.env,
		"write_timeout": s.httpServer.WriteTimeout.String(),
	}).Info("Starting bondlab API")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on :%s: %w", s.port, err)
	}
	return nil
}

// Shutdown drains in-flight analyses, waiting at most ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.drainWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.drainWait)
		defer cancel()
	}

	s.logger.Info("Draining API requests")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}
