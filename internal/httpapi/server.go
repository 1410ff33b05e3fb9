// Package httpapi exposes the admin HTTP surface: snapshot create, list
// and restore triggers, legacy-import upload, import run inspection, and
// health. Every endpoint answers with a {status, data, error} envelope.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"inventory-vault/internal/logging"
)

// Server wraps the http.Server lifecycle around the admin routes
type Server struct {
	httpServer *http.Server
	logger     *logging.Logger
}

// NewServer creates the admin HTTP server. Read and write timeouts are
// generous because import uploads stream whole legacy exports.
func NewServer(addr string, handler http.Handler, logger *logging.Logger) *Server {
	if addr == "" {
		addr = ":8080"
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       5 * time.Minute,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
		logger: logger,
	}
}

// Serve listens until ctx is cancelled, then drains in-flight requests
// with a grace period before returning.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.WithField("addr", s.httpServer.Addr).Info("Admin API listening")

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("Admin API stopped")
		return nil
	}
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
