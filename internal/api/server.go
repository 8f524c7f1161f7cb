package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/taho/analytics/pkg/config"
	"github.com/taho/analytics/pkg/logger"
)

// Server runs the analytics HTTP API. Timeouts come from SERVER_* config so
// deployments can widen the write timeout for long hourly-report responses.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// New builds the server around the given router
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	addr := ":" + cfg.Port
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		logger: log.WithFields(map[string]interface{}{
			"addr": addr,
			"env":  cfg.Env,
		}),
	}
}

// Start serves requests until Shutdown is called
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"read_timeout":  s.httpServer.ReadTimeout.String(),
		"write_timeout": s.httpServer.WriteTimeout.String(),
	}).Info("Analytics API listening")

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Draining analytics API")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}
