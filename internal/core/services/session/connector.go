package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/ports"
	"github.com/rangelab/rangectl/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Connector drives single-role connection lifecycle against the gateway.
// It writes the registry optimistically and rolls back on failure; the
// asynchronous correction passes (events, polling) later reconcile the
// registry against ground truth.
type Connector struct {
	registry ports.SessionRegistry
	gateway  ports.Gateway
	audit    ports.AuditService
	guard    *roleGuard
}

// NewConnector creates a new Connector.
func NewConnector(registry ports.SessionRegistry, gateway ports.Gateway, audit ports.AuditService, guard *roleGuard) *Connector {
	if guard == nil {
		guard = newRoleGuard()
	}
	return &Connector{
		registry: registry,
		gateway:  gateway,
		audit:    audit,
		guard:    guard,
	}
}

// Connect requests a token for one role.
//
// isActive is flipped on before the gateway call so the UI reflects the
// attempt immediately; hasValidToken only ever follows a confirmed gateway
// response. On failure isActive is rolled back for this role only and the
// role-scoped error is surfaced without automatic retry.
func (c *Connector) Connect(ctx context.Context, role domain.Role) (domain.Session, error) {
	ctx, span := otel.Tracer("session-service").Start(ctx, "Connect")
	defer span.End()
	span.SetAttributes(attribute.String("session.role", string(role)))

	if _, ok := c.registry.Get(role); !ok {
		return domain.Session{}, domain.ErrUnknownRole
	}
	if !c.guard.acquire(role) {
		return domain.Session{}, domain.ErrConnectionInFlight
	}
	defer c.guard.release(role)

	if _, err := c.registry.Update(role, domain.SessionPatch{IsActive: domain.Bool(true)}); err != nil {
		return domain.Session{}, err
	}

	grant, err := c.gateway.RequestToken(ctx, role)
	if err != nil {
		telemetry.TokenFailures.WithLabelValues(string(role)).Inc()
		// Roll the optimistic flip back for this role only.
		if _, rbErr := c.registry.Update(role, domain.SessionPatch{
			IsActive:      domain.Bool(false),
			HasValidToken: domain.Bool(false),
		}); rbErr != nil {
			slog.Warn("rollback after failed token request", "role", role, "error", rbErr)
		}
		return domain.Session{}, err
	}

	connURL := grant.ConnectionURL
	if connURL == "" {
		connURL, err = c.gateway.ConnectionURL(role, grant.Token)
		if err != nil {
			slog.Warn("connection URL derivation failed", "role", role, "error", err)
		}
	}

	now := time.Now()
	updated, err := c.registry.Update(role, domain.SessionPatch{
		IsActive:      domain.Bool(true),
		HasValidToken: domain.Bool(true),
		Token:         domain.Str(grant.Token),
		ConnectionURL: domain.Str(connURL),
		LastActivity:  domain.Time(now),
	})
	if err != nil {
		return domain.Session{}, err
	}

	telemetry.TokensIssued.WithLabelValues(string(role)).Inc()
	if c.audit != nil {
		if aErr := c.audit.Log(ctx, domain.ActionTokenIssued, string(role), "token granted"); aErr != nil {
			slog.Warn("audit write failed", "action", domain.ActionTokenIssued, "error", aErr)
		}
	}
	return updated, nil
}

// Disconnect revokes one role's token. Best-effort: the local session is
// reset to the disconnected state even when the revoke call fails, because
// a false "disconnected" is cheaper than a false "connected".
func (c *Connector) Disconnect(ctx context.Context, role domain.Role) error {
	ctx, span := otel.Tracer("session-service").Start(ctx, "Disconnect")
	defer span.End()
	span.SetAttributes(attribute.String("session.role", string(role)))

	if _, ok := c.registry.Get(role); !ok {
		return domain.ErrUnknownRole
	}
	if !c.guard.acquire(role) {
		return domain.ErrConnectionInFlight
	}
	defer c.guard.release(role)

	if err := c.gateway.RevokeToken(ctx, role); err != nil {
		// Logged, not surfaced as blocking.
		slog.Warn("token revoke failed, resetting local state anyway", "role", role, "error", err)
	}

	if err := c.registry.Reset(role); err != nil {
		return err
	}
	if c.audit != nil {
		if aErr := c.audit.Log(ctx, domain.ActionTokenRevoked, string(role), "session closed"); aErr != nil {
			slog.Warn("audit write failed", "action", domain.ActionTokenRevoked, "error", aErr)
		}
	}
	return nil
}
