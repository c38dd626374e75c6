package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/ports"
	"github.com/rangelab/rangectl/internal/telemetry"
)

// Listener consumes push-channel events and reconciles the registry in
// response to out-of-band connects, disconnects and resets, i.e. changes
// not caused by this client's own calls. Every handler is idempotent:
// replaying an event never corrupts state.
type Listener struct {
	registry ports.SessionRegistry
	gateway  ports.Gateway
	source   ports.EventSource
	audit    ports.AuditService
}

// NewListener creates a new Listener.
func NewListener(registry ports.SessionRegistry, gateway ports.Gateway, source ports.EventSource, audit ports.AuditService) *Listener {
	return &Listener{
		registry: registry,
		gateway:  gateway,
		source:   source,
		audit:    audit,
	}
}

// Run dispatches events until the context is cancelled or the source's
// event channel closes. Channel loss is not fatal: while disconnected the
// status poller remains the sole source of truth.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-l.source.Events():
			if !ok {
				slog.Warn("push channel event stream closed")
				return
			}
			l.Apply(ctx, evt)
		}
	}
}

// Apply reconciles the registry for a single event. Malformed or
// unrecognized events are counted and ignored.
func (l *Listener) Apply(ctx context.Context, evt domain.Event) {
	switch evt.Type {
	case domain.EventUserConnected:
		if evt.Role == "" {
			l.ignore(evt)
			return
		}
		now := time.Now()
		if _, err := l.registry.Update(evt.Role, domain.SessionPatch{
			HasValidToken: domain.Bool(true),
			LastActivity:  domain.Time(now),
		}); err != nil {
			l.ignore(evt)
			return
		}

	case domain.EventUserDisconnected:
		if evt.Role == "" {
			l.ignore(evt)
			return
		}
		// The session may stay "active but currently unauthenticated",
		// pending re-validation; isActive is not forced off.
		if _, err := l.registry.Update(evt.Role, domain.SessionPatch{
			HasValidToken: domain.Bool(false),
		}); err != nil {
			l.ignore(evt)
			return
		}

	case domain.EventBulkConnectComplete:
		if evt.Result == nil {
			l.ignore(evt)
			return
		}
		now := time.Now()
		for role, grant := range evt.Result.Results {
			connURL := grant.ConnectionURL
			if connURL == "" {
				if derived, err := l.gateway.ConnectionURL(role, grant.Token); err == nil {
					connURL = derived
				}
			}
			if _, err := l.registry.Update(role, domain.SessionPatch{
				IsActive:      domain.Bool(true),
				HasValidToken: domain.Bool(true),
				Token:         domain.Str(grant.Token),
				ConnectionURL: domain.Str(connURL),
				LastActivity:  domain.Time(now),
			}); err != nil {
				slog.Debug("bulk connect event apply failed", "role", role, "error", err)
			}
		}
		for role := range evt.Result.Errors {
			if _, err := l.registry.Update(role, domain.SessionPatch{
				IsActive:      domain.Bool(false),
				HasValidToken: domain.Bool(false),
			}); err != nil {
				slog.Debug("bulk connect event apply failed", "role", role, "error", err)
			}
		}
		// Roles in neither map are untouched.

	case domain.EventBulkDisconnectComplete:
		l.registry.ResetAll()

	case domain.EventScenarioUpdate:
		// Opaque scenario metadata; nothing to reconcile.

	case domain.EventSessionReset:
		// Our view may be stale in an unknown way: discard all local
		// session state and re-pull the authoritative snapshot.
		l.registry.ResetAll()
		status, err := l.gateway.FetchStatus(ctx)
		if err != nil {
			slog.Warn("status re-pull after session reset failed", "error", err)
		} else {
			l.registry.Seed(status)
		}
		if l.audit != nil {
			if aErr := l.audit.Log(ctx, domain.ActionSessionReset, "all", "full resynchronization"); aErr != nil {
				slog.Warn("audit write failed", "action", domain.ActionSessionReset, "error", aErr)
			}
		}

	default:
		l.ignore(evt)
		return
	}

	telemetry.EventsProcessed.WithLabelValues(string(evt.Type)).Inc()
}

func (l *Listener) ignore(evt domain.Event) {
	telemetry.EventsIgnored.Inc()
	slog.Debug("ignoring push event", "type", evt.Type, "role", evt.Role)
}
