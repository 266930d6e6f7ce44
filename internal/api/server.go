// Package api exposes the watchdog's read-only HTTP surface: current device
// statuses and rolling-window uptime. The administrative console and
// dashboards are external consumers of these endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VeriNexus/verinexus-speedtest/internal/version"
	"go.uber.org/zap"
)

// Server serves the watchdog API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a Server listening on addr. extra handlers (such as the
// Prometheus exporter) are mounted verbatim by pattern.
func New(addr string, h *Handlers, extra map[string]http.Handler, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
	}

	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/devices", h.handleListDevices)
	mux.HandleFunc("GET /api/v1/devices/{mac}/uptime", h.handleDeviceUptime)

	for pattern, handler := range extra {
		mux.Handle(pattern, handler)
		logger.Debug("mounted extra route", zap.String("pattern", pattern))
	}

	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "watchdog",
		"version": version.Map(),
	})
}
