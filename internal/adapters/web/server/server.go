// Package server wires the HTTP surface: routing, middleware, lifecycle.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rangelab/rangectl/internal/adapters/web"
	"github.com/rangelab/rangectl/internal/adapters/web/handlers"
	"github.com/rangelab/rangectl/internal/core/ports"
	"github.com/rangelab/rangectl/internal/core/services/session"
)

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr string

	WSManager       *web.WSManager
	SessionHandler  *handlers.SessionHandler
	ScenarioHandler *handlers.ScenarioHandler
	AuditHandler    *handlers.AuditHandler

	srv *http.Server
}

// NewServer creates a new web server over the orchestrator and its
// supporting services.
func NewServer(addr string, orchestrator *session.Orchestrator, registry ports.SessionRegistry, catalog ports.ScenarioCatalog, provisioner ports.Provisioner, auditService ports.AuditService) *Server {
	return &Server{
		Addr:            addr,
		WSManager:       web.NewWSManager(),
		SessionHandler:  handlers.NewSessionHandler(orchestrator, registry),
		ScenarioHandler: handlers.NewScenarioHandler(catalog, provisioner, auditService),
		AuditHandler:    handlers.NewAuditHandler(auditService),
	}
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	handler := SetupRoutes(s)
	instrumented := otelhttp.NewHandler(handler, "rangectl-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumented,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("web server shutdown", "error", err)
		}
	}()

	slog.Info("web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
