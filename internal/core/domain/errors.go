package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain Errors
var (
	// ErrUnknownRole is returned when an operation names a role the
	// registry was not initialized with. Roles are never invented.
	ErrUnknownRole = errors.New("unknown role")

	// ErrStaleCorrection marks a reconciliation update that arrived out of
	// order. Discarded, never surfaced to the user.
	ErrStaleCorrection = errors.New("stale correction discarded")

	// ErrChannelDisconnected signals the push channel is unavailable. The
	// orchestrator degrades to polling-only; this is not fatal.
	ErrChannelDisconnected = errors.New("push channel disconnected")

	// ErrConnectionInFlight guards the per-role serialization of gateway
	// calls: no second token request is issued while one is pending.
	ErrConnectionInFlight = errors.New("connection attempt already in flight")

	// ErrRegistryClosed is returned for writes after view teardown.
	ErrRegistryClosed = errors.New("session registry closed")
)

// GatewayError is a role-scoped failure of a single-role gateway call.
// User-visible, non-fatal, never retried automatically.
type GatewayError struct {
	Role       Role
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway: %s: %s: %v", e.Role, e.Message, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway: %s: %s (HTTP %d)", e.Role, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Role, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// BulkPartialFailure aggregates the failed subset of a multi-role call.
// Successes are kept; the message lists "role: reason" pairs and is
// surfaced once.
type BulkPartialFailure struct {
	Errors map[Role]string
}

func (e *BulkPartialFailure) Error() string {
	roles := make([]string, 0, len(e.Errors))
	for r := range e.Errors {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)

	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, fmt.Sprintf("%s: %s", r, e.Errors[Role(r)]))
	}
	return "bulk connect failed for " + strings.Join(parts, "; ")
}
