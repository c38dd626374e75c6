package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rangelab/rangectl/internal/core/ports"
)

// Options tunes the orchestrator's background cadences.
type Options struct {
	// PollInterval is the status poll cadence while the push channel is up.
	PollInterval time.Duration
	// DegradedPollInterval replaces PollInterval when the push channel
	// could not be established and polling is the sole source of truth.
	DegradedPollInterval time.Duration
	// HealthInterval is the idle-session sweep cadence.
	HealthInterval time.Duration
	// IdleThreshold is how long a role may sit without activity before
	// its token is re-validated.
	IdleThreshold time.Duration
	// TeardownTimeout bounds the best-effort bulk disconnect on Close.
	TeardownTimeout time.Duration
}

// DefaultOptions returns the production cadences.
func DefaultOptions() Options {
	return Options{
		PollInterval:         30 * time.Second,
		DegradedPollInterval: 10 * time.Second,
		HealthInterval:       5 * time.Minute,
		IdleThreshold:        15 * time.Minute,
		TeardownTimeout:      5 * time.Second,
	}
}

// Orchestrator owns the session lifecycle end to end: it seeds the
// registry from the gateway, runs the push listener, the status poller
// and the health monitor, and exposes the direct connect operations.
// Direct calls, push events and polls all converge on the registry, which
// arbitrates between them.
type Orchestrator struct {
	Connector *Connector
	Bulk      *BulkCoordinator
	Listener  *Listener
	Poller    *StatusPoller
	Health    *HealthMonitor

	registry ports.SessionRegistry
	gateway  ports.Gateway
	source   ports.EventSource
	opts     Options

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	pollOnly bool

	closeOnce sync.Once
}

// NewOrchestrator wires the session services over a shared per-role guard.
// source may be nil, in which case the orchestrator runs poll-only from
// the start.
func NewOrchestrator(registry ports.SessionRegistry, gateway ports.Gateway, source ports.EventSource, audit ports.AuditService, opts Options) *Orchestrator {
	guard := newRoleGuard()
	o := &Orchestrator{
		Connector: NewConnector(registry, gateway, audit, guard),
		Bulk:      NewBulkCoordinator(registry, gateway, audit, guard),
		Health:    NewHealthMonitor(registry, gateway, audit, opts.HealthInterval, opts.IdleThreshold),
		registry:  registry,
		gateway:   gateway,
		source:    source,
		opts:      opts,
	}
	if source != nil {
		o.Listener = NewListener(registry, gateway, source, audit)
	}
	return o
}

// PollOnly reports whether the orchestrator is running without the push
// channel.
func (o *Orchestrator) PollOnly() bool {
	return o.pollOnly
}

// Start seeds the registry and launches the background loops. A failing
// initial status fetch is not fatal: the poller will converge once the
// gateway is reachable.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, o.cancel = context.WithCancel(ctx)

	if status, err := o.gateway.FetchStatus(ctx); err != nil {
		slog.Warn("initial status fetch failed, starting with empty sessions", "error", err)
	} else {
		o.registry.Seed(status)
	}

	interval := o.opts.PollInterval
	if o.source == nil {
		o.pollOnly = true
	} else if err := o.source.Start(ctx); err != nil {
		slog.Warn("push channel unavailable, running poll-only", "error", err)
		o.pollOnly = true
	}
	if o.pollOnly {
		interval = o.opts.DegradedPollInterval
	}
	o.Poller = NewStatusPoller(o.registry, o.gateway, interval)

	if !o.pollOnly {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.Listener.Run(ctx)
		}()
	}
	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		o.Poller.Run(ctx)
	}()
	go func() {
		defer o.wg.Done()
		o.Health.Run(ctx)
	}()
	return nil
}

// Close tears the orchestrator down. Teardown never blocks on the
// gateway: the server-side bulk disconnect is fired on a bounded timeout
// while local state is reset immediately. A gateway left believing a
// session is live is corrected by its own expiry; too-eager disconnection
// is the safe direction.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		if o.source != nil {
			if err := o.source.Close(); err != nil {
				slog.Debug("push channel close", "error", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), o.opts.TeardownTimeout)
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer cancel()
			if err := o.gateway.DisconnectAll(ctx); err != nil {
				slog.Warn("teardown bulk disconnect failed", "error", err)
			}
		}()

		o.registry.ResetAll()
		o.registry.Close()
		o.wg.Wait()

		select {
		case <-done:
		case <-time.After(o.opts.TeardownTimeout):
			slog.Warn("teardown bulk disconnect timed out")
		}
	})
}
