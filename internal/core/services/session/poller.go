package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/ports"
	"github.com/rangelab/rangectl/internal/telemetry"
)

// StatusPoller periodically pulls the aggregate system status and corrects
// each role's token validity against the authoritative hasActiveToken
// flag. It is a correction pass: it never flips isActive, which is local
// UI intent, not server state.
type StatusPoller struct {
	registry ports.SessionRegistry
	gateway  ports.Gateway
	interval time.Duration

	// inFlight suppresses the next tick while a slow poll is outstanding.
	inFlight atomic.Bool
}

// NewStatusPoller creates a new StatusPoller.
func NewStatusPoller(registry ports.SessionRegistry, gateway ports.Gateway, interval time.Duration) *StatusPoller {
	return &StatusPoller{
		registry: registry,
		gateway:  gateway,
		interval: interval,
	}
}

// Run polls until the context is cancelled. Polling continues regardless
// of push channel health; while the channel is down this is the sole
// source of truth.
func (p *StatusPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.inFlight.CompareAndSwap(false, true) {
				telemetry.StatusPolls.WithLabelValues("suppressed").Inc()
				continue
			}
			go p.Poll(ctx)
		}
	}
}

// Poll performs one correction pass. The stamp is reserved before the
// status call goes out, so any write that lands while the response is in
// flight makes the correction stale for that role and it is discarded.
func (p *StatusPoller) Poll(ctx context.Context) {
	defer p.inFlight.Store(false)

	stamp := p.registry.NextStamp()
	status, err := p.gateway.FetchStatus(ctx)
	if err != nil {
		// Background consistency pass: logged only, never user-visible.
		slog.Debug("status poll failed", "error", err)
		telemetry.StatusPolls.WithLabelValues("error").Inc()
		return
	}

	for role, cfg := range status.Roles {
		err := p.registry.ApplyCorrection(role, domain.SessionPatch{
			HasValidToken: domain.Bool(cfg.HasActiveToken),
		}, stamp)
		switch {
		case errors.Is(err, domain.ErrStaleCorrection):
			telemetry.StaleCorrections.Inc()
		case errors.Is(err, domain.ErrUnknownRole):
			slog.Debug("status reported unknown role", "role", role)
		}
	}
	telemetry.StatusPolls.WithLabelValues("ok").Inc()
}
