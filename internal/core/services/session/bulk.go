package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/ports"
	"github.com/rangelab/rangectl/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// BulkCoordinator issues connect-all / disconnect-all gateway calls and
// maps the single multi-role response into per-role registry updates,
// isolating per-role failures from each other.
type BulkCoordinator struct {
	registry ports.SessionRegistry
	gateway  ports.Gateway
	audit    ports.AuditService
	guard    *roleGuard
}

// NewBulkCoordinator creates a new BulkCoordinator. The guard is shared
// with the Connector so bulk and single-role calls never race on a role.
func NewBulkCoordinator(registry ports.SessionRegistry, gateway ports.Gateway, audit ports.AuditService, guard *roleGuard) *BulkCoordinator {
	if guard == nil {
		guard = newRoleGuard()
	}
	return &BulkCoordinator{
		registry: registry,
		gateway:  gateway,
		audit:    audit,
		guard:    guard,
	}
}

// ConnectAll connects every role with one gateway call.
//
// Partial failure is not escalated to total failure: roles that succeeded
// stay connected, failed roles are rolled back individually, and a single
// aggregated *domain.BulkPartialFailure lists the failed roles.
func (b *BulkCoordinator) ConnectAll(ctx context.Context) (domain.BulkResult, error) {
	ctx, span := otel.Tracer("session-service").Start(ctx, "ConnectAll")
	defer span.End()

	roles := b.registry.Roles()
	if !b.guard.acquireAll(roles) {
		return domain.BulkResult{}, domain.ErrConnectionInFlight
	}
	defer b.guard.release(roles...)

	// Optimistic flip for every role covered by the call.
	for _, role := range roles {
		if _, err := b.registry.Update(role, domain.SessionPatch{IsActive: domain.Bool(true)}); err != nil {
			return domain.BulkResult{}, err
		}
	}

	result, err := b.gateway.ConnectAll(ctx)
	if err != nil {
		// Total failure: every optimistic flip is rolled back.
		for _, role := range roles {
			if _, rbErr := b.registry.Update(role, domain.SessionPatch{
				IsActive:      domain.Bool(false),
				HasValidToken: domain.Bool(false),
			}); rbErr != nil {
				slog.Warn("rollback after failed bulk connect", "role", role, "error", rbErr)
			}
			telemetry.TokenFailures.WithLabelValues(string(role)).Inc()
		}
		return domain.BulkResult{}, err
	}

	span.SetAttributes(
		attribute.Int("bulk.succeeded", len(result.Results)),
		attribute.Int("bulk.failed", len(result.Errors)),
	)

	now := time.Now()
	for role, grant := range result.Results {
		b.applyGrant(role, grant, now)
	}
	for role := range result.Errors {
		if _, rbErr := b.registry.Update(role, domain.SessionPatch{
			IsActive:      domain.Bool(false),
			HasValidToken: domain.Bool(false),
		}); rbErr != nil {
			slog.Warn("rollback for failed bulk role", "role", role, "error", rbErr)
		}
		telemetry.TokenFailures.WithLabelValues(string(role)).Inc()
	}
	// Roles the gateway answered for in neither map were not connected;
	// the optimistic flip is undone for them as well.
	for _, role := range roles {
		if _, ok := result.Results[role]; ok {
			continue
		}
		if _, ok := result.Errors[role]; ok {
			continue
		}
		if _, rbErr := b.registry.Update(role, domain.SessionPatch{IsActive: domain.Bool(false)}); rbErr != nil {
			slog.Warn("rollback for unanswered bulk role", "role", role, "error", rbErr)
		}
	}

	if b.audit != nil {
		details := fmt.Sprintf("succeeded=%d failed=%d", len(result.Results), len(result.Errors))
		if aErr := b.audit.Log(ctx, domain.ActionBulkConnect, "all", details); aErr != nil {
			slog.Warn("audit write failed", "action", domain.ActionBulkConnect, "error", aErr)
		}
	}

	if len(result.Errors) > 0 {
		return result, &domain.BulkPartialFailure{Errors: result.Errors}
	}
	return result, nil
}

// DisconnectAll tears every role down. Unconditional: regardless of the
// gateway response, every session is reset locally, failing safe toward
// "assume disconnected".
func (b *BulkCoordinator) DisconnectAll(ctx context.Context) error {
	ctx, span := otel.Tracer("session-service").Start(ctx, "DisconnectAll")
	defer span.End()

	if err := b.gateway.DisconnectAll(ctx); err != nil {
		slog.Warn("bulk disconnect failed server-side, resetting local state anyway", "error", err)
	}

	b.registry.ResetAll()

	if b.audit != nil {
		if aErr := b.audit.Log(ctx, domain.ActionBulkDisconnect, "all", "all sessions reset"); aErr != nil {
			slog.Warn("audit write failed", "action", domain.ActionBulkDisconnect, "error", aErr)
		}
	}
	return nil
}

// applyGrant records a confirmed per-role connect, used by both the bulk
// result path and the bulk_connect_complete event path.
func (b *BulkCoordinator) applyGrant(role domain.Role, grant domain.RoleGrant, now time.Time) {
	connURL := grant.ConnectionURL
	if connURL == "" {
		if derived, err := b.gateway.ConnectionURL(role, grant.Token); err == nil {
			connURL = derived
		}
	}
	if _, err := b.registry.Update(role, domain.SessionPatch{
		IsActive:      domain.Bool(true),
		HasValidToken: domain.Bool(true),
		Token:         domain.Str(grant.Token),
		ConnectionURL: domain.Str(connURL),
		LastActivity:  domain.Time(now),
	}); err != nil {
		slog.Warn("bulk grant apply failed", "role", role, "error", err)
		return
	}
	telemetry.TokensIssued.WithLabelValues(string(role)).Inc()
}
