package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rangelab/rangectl/internal/adapters/events"
	"github.com/rangelab/rangectl/internal/adapters/gateway"
	"github.com/rangelab/rangectl/internal/adapters/provision"
	"github.com/rangelab/rangectl/internal/adapters/storage"
	webserver "github.com/rangelab/rangectl/internal/adapters/web/server"
	"github.com/rangelab/rangectl/internal/config"
	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/ports"
	"github.com/rangelab/rangectl/internal/core/services/audit"
	"github.com/rangelab/rangectl/internal/core/services/catalog"
	"github.com/rangelab/rangectl/internal/core/services/registry"
	"github.com/rangelab/rangectl/internal/core/services/session"
	"github.com/rangelab/rangectl/internal/mock"
	"github.com/rangelab/rangectl/internal/telemetry"
)

// Application holds the core components of the application.
// It acts as the Facade for the entire system, orchestrating services and infrastructure.
type Application struct {
	Config       *config.Config
	Registry     *registry.SessionRegistry
	Orchestrator *session.Orchestrator
	WebServer    *webserver.Server
	AuditService *audit.AuditService

	store       *storage.SQLiteAdapter
	source      ports.EventSource
	mockGateway *mock.GatewayServer
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
	}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation & Infrastructure
	telemetry.InitMetrics()

	if err := app.initStorage(); err != nil {
		return err
	}
	app.AuditService = audit.NewAuditService(app.store)

	// 2. Gateway endpoints, virtualized when running in mock mode
	gatewayURL, eventsURL, err := app.resolveEndpoints()
	if err != nil {
		return err
	}

	// 3. Domain Services
	app.Registry = registry.NewSessionRegistry(domain.DefaultRoles())

	gw := gateway.NewClient(gatewayURL,
		gateway.WithDatasource(app.Config.Datasource),
		gateway.WithConnectionIDs(app.Config.ConnectionIDs),
	)

	app.source, err = events.NewSource(eventsURL)
	if err != nil {
		return fmt.Errorf("event source setup failed: %w", err)
	}

	opts := session.DefaultOptions()
	opts.PollInterval = app.Config.PollInterval
	opts.DegradedPollInterval = app.Config.DegradedPollInterval
	opts.HealthInterval = app.Config.HealthInterval
	opts.IdleThreshold = app.Config.IdleThreshold

	app.Orchestrator = session.NewOrchestrator(app.Registry, gw, app.source, app.AuditService, opts)

	// 4. Web Server & Integration
	app.WebServer = webserver.NewServer(
		app.Config.Addr,
		app.Orchestrator,
		app.Registry,
		catalog.NewCatalog(),
		provision.NewClient(app.Config.ProvisionerURL),
		app.AuditService,
	)

	// Session changes fan out to connected browsers.
	app.Registry.Subject().AddObserver(app.WebServer.WSManager)

	return nil
}

func (app *Application) initStorage() error {
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init audit storage: %w", err)
	}
	app.store = store
	return nil
}

// resolveEndpoints returns the gateway and events URLs, spinning up the
// in-process mock gateway first when mock mode is active.
func (app *Application) resolveEndpoints() (string, string, error) {
	if !app.Config.MockMode {
		return app.Config.GatewayURL, app.Config.EventsURL, nil
	}

	slog.Info("Mock Mode Active: virtualizing the access gateway")
	app.mockGateway = mock.NewGatewayServer()
	if err := app.mockGateway.Start(); err != nil {
		return "", "", fmt.Errorf("mock gateway start failed: %w", err)
	}
	return app.mockGateway.BaseURL(), app.mockGateway.EventsURL(), nil
}

// Run starts the application components and blocks until the context is
// cancelled or a component fails.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting rangectl components...")

	if err := app.Orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator start failed: %w", err)
	}
	if app.Orchestrator.PollOnly() {
		slog.Warn("Push channel unavailable, running in poll-only mode")
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Web server listening", "addr", app.Config.Addr)
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	slog.Info("rangectl ready. Press Ctrl+C to terminate.")

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Termination signal received")
	case runErr = <-errChan:
	}

	app.shutdown()
	return runErr
}

// shutdown tears components down in reverse dependency order.
func (app *Application) shutdown() {
	app.Orchestrator.Close()

	if app.mockGateway != nil {
		app.mockGateway.Stop()
	}

	if err := app.store.Close(); err != nil {
		slog.Error("Audit storage close failed", "error", err)
	}

	slog.Info("Shutdown complete")
}
