package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/ports"
	"github.com/rangelab/rangectl/internal/telemetry"
)

// HealthMonitor audits idle sessions. On a coarse interval it re-validates
// tokens for active roles whose last observed activity is older than the
// idle threshold; a failed probe clears hasValidToken for that role only
// and never forces a disconnect, so the user can still reconnect manually.
type HealthMonitor struct {
	registry      ports.SessionRegistry
	gateway       ports.Gateway
	audit         ports.AuditService
	interval      time.Duration
	idleThreshold time.Duration

	// revalidated records, per role, the lastActivity value a successful
	// probe covered. Probing repeats each tick until activity resumes or
	// the token is revalidated; a success stops further probes for the
	// same idle period.
	mu          sync.Mutex
	revalidated map[domain.Role]time.Time

	now func() time.Time
}

// NewHealthMonitor creates a new HealthMonitor.
func NewHealthMonitor(registry ports.SessionRegistry, gateway ports.Gateway, audit ports.AuditService, interval, idleThreshold time.Duration) *HealthMonitor {
	return &HealthMonitor{
		registry:      registry,
		gateway:       gateway,
		audit:         audit,
		interval:      interval,
		idleThreshold: idleThreshold,
		revalidated:   make(map[domain.Role]time.Time),
		now:           time.Now,
	}
}

// RecordActivity marks the operator as present. Movement, keys, scroll and
// touch all funnel here; activity touches every active role, not just the
// focused window's.
func (h *HealthMonitor) RecordActivity() {
	h.registry.TouchActivity(h.now())
}

// Run sweeps until the context is cancelled.
func (h *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep(ctx)
		}
	}
}

// Sweep issues at most one validation probe per idle active role.
func (h *HealthMonitor) Sweep(ctx context.Context) {
	now := h.now()
	for role, s := range h.registry.Snapshot() {
		if !s.IsActive {
			continue
		}
		if !s.LastActivity.IsZero() && now.Sub(s.LastActivity) < h.idleThreshold {
			continue
		}
		if h.alreadyRevalidated(role, s) {
			continue
		}
		h.probe(ctx, role, s.LastActivity)
	}
}

func (h *HealthMonitor) alreadyRevalidated(role domain.Role, s domain.Session) bool {
	if !s.HasValidToken {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	covered, ok := h.revalidated[role]
	return ok && covered.Equal(s.LastActivity)
}

func (h *HealthMonitor) probe(ctx context.Context, role domain.Role, lastActivity time.Time) {
	stamp := h.registry.NextStamp()

	if err := h.gateway.Validate(ctx, role); err != nil {
		telemetry.HealthProbes.WithLabelValues(string(role), "invalid").Inc()
		slog.Info("idle session failed validation", "role", role, "error", err)
		if applyErr := h.registry.ApplyCorrection(role, domain.SessionPatch{
			HasValidToken: domain.Bool(false),
		}, stamp); applyErr != nil {
			telemetry.StaleCorrections.Inc()
		}
		if h.audit != nil {
			details := fmt.Sprintf("validation failed: %v", err)
			if aErr := h.audit.Log(ctx, domain.ActionHealthProbe, string(role), details); aErr != nil {
				slog.Warn("audit write failed", "action", domain.ActionHealthProbe, "error", aErr)
			}
		}
		return
	}

	telemetry.HealthProbes.WithLabelValues(string(role), "valid").Inc()
	if applyErr := h.registry.ApplyCorrection(role, domain.SessionPatch{
		HasValidToken: domain.Bool(true),
	}, stamp); applyErr != nil {
		telemetry.StaleCorrections.Inc()
	}

	h.mu.Lock()
	h.revalidated[role] = lastActivity
	h.mu.Unlock()
}
