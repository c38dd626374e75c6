package ports

import (
	"context"
	"time"

	"github.com/rangelab/rangectl/internal/core/domain"
)

// Gateway is the remote-access gateway contract. Exact wire shape is the
// adapter's concern; services only see these operations.
type Gateway interface {
	// FetchStatus pulls the aggregate system status snapshot.
	FetchStatus(ctx context.Context) (domain.SystemStatus, error)
	// RequestToken issues an access token for one role. Fails with a
	// *domain.GatewayError on non-2xx or network failure.
	RequestToken(ctx context.Context, role domain.Role) (domain.RoleGrant, error)
	// RevokeToken releases one role's token. Best-effort.
	RevokeToken(ctx context.Context, role domain.Role) error
	// ConnectAll issues one gateway call covering all roles.
	ConnectAll(ctx context.Context) (domain.BulkResult, error)
	// DisconnectAll tears down all roles server-side. Best-effort.
	DisconnectAll(ctx context.Context) error
	// Validate is a lightweight probe; a non-nil error means the role's
	// token is no longer usable.
	Validate(ctx context.Context, role domain.Role) error
	// ConnectionURL derives a role's connection URL from configuration.
	// Pure derivation, no network call.
	ConnectionURL(role domain.Role, token string) (string, error)
}

// SessionRegistry is the authoritative, role-indexed table of session
// state. Per-role atomic merges; roles are fixed after initialization.
type SessionRegistry interface {
	Get(role domain.Role) (domain.Session, bool)
	Snapshot() map[domain.Role]domain.Session
	Roles() []domain.Role

	// Update applies a patch with a fresh stamp (local writes always win).
	Update(role domain.Role, patch domain.SessionPatch) (domain.Session, error)
	// NextStamp reserves a monotonic stamp for a correction about to be
	// gathered from an authoritative source.
	NextStamp() uint64
	// ApplyCorrection applies a patch only if no write for the role
	// happened after the stamp was reserved. Returns
	// domain.ErrStaleCorrection otherwise.
	ApplyCorrection(role domain.Role, patch domain.SessionPatch, stamp uint64) error

	// Reset returns one role to the inactive state; ResetAll does so for
	// every role. Sessions are never deleted.
	Reset(role domain.Role) error
	ResetAll()

	// Seed overwrites token validity from server-reported role config.
	Seed(status domain.SystemStatus)
	// TouchActivity updates lastActivity for every currently active role.
	TouchActivity(now time.Time)

	// Close marks the registry torn down; later writes are no-ops.
	Close()
}

// EventSource is a long-lived subscription to the push channel.
type EventSource interface {
	// Start establishes the subscription. An error here means the channel
	// is unavailable and the orchestrator must run poll-only.
	Start(ctx context.Context) error
	// Events delivers typed notifications until Close.
	Events() <-chan domain.Event
	// Connected reports current channel health.
	Connected() bool
	Close() error
}

// ScenarioCatalog is the static training-scenario lookup.
type ScenarioCatalog interface {
	Get(id string) (domain.Scenario, bool)
	List() []domain.Scenario
}

// Provisioner starts and stops scenario VMs. Invoked only as start/stop
// calls returning captured output; provisioning itself is external.
type Provisioner interface {
	StartScenario(ctx context.Context, id string) (string, error)
	StopScenario(ctx context.Context, id string) (string, error)
	TailLog(ctx context.Context) (string, error)
}
