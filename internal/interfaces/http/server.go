// Package http assembles the request-serving surface: the route tree, the
// middleware stack, and the server lifecycle.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
)

type Server struct {
	srv    *http.Server
	router http.Handler
	cfg    config.ServerConfig
	logger logging.Logger
}

func NewServer(cfg config.ServerConfig, router http.Handler, logger logging.Logger) *Server {
	return &Server{
		router: router,
		cfg:    cfg,
		logger: logger.Named("server"),
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", logging.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}
