package domain

import (
	"errors"
	"time"
)

// AuditAction represents a type-safe action identifier for the audit log.
type AuditAction string

// System Audit Actions
const (
	ActionTokenIssued    AuditAction = "TOKEN_ISSUED"
	ActionTokenRevoked   AuditAction = "TOKEN_REVOKED"
	ActionTokenInvalid   AuditAction = "TOKEN_INVALIDATED"
	ActionBulkConnect    AuditAction = "BULK_CONNECT"
	ActionBulkDisconnect AuditAction = "BULK_DISCONNECT"
	ActionSessionReset   AuditAction = "SESSION_RESET"
	ActionScenarioStart  AuditAction = "SCENARIO_STARTED"
	ActionScenarioStop   AuditAction = "SCENARIO_STOPPED"
	ActionHealthProbe    AuditAction = "HEALTH_PROBE"
	ActionInfo           AuditAction = "INFO"
)

// Domain Errors
var (
	ErrInvalidAction = errors.New("invalid audit action")
	ErrMissingActor  = errors.New("actor identification is required for auditing")
)

// AuditLog represents a record of a critical orchestrator action.
// This is a pure domain entity, decoupled from persistence (GORM) constraints;
// JSON tags are kept for API compatibility.
type AuditLog struct {
	ID        uint        `json:"id"`
	ClientID  string      `json:"client_id"`
	Actor     string      `json:"actor"` // Denormalized for display/reporting
	Action    AuditAction `json:"action"`
	Target    string      `json:"target"` // The resource affected (role or scenario id)
	Details   string      `json:"details"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAuditLog is the designated factory for creating valid AuditLog entities.
// It ensures that all required invariant rules are satisfied.
func NewAuditLog(clientID, actor string, action AuditAction, target, details string) (*AuditLog, error) {
	if clientID == "" && actor == "" {
		return nil, ErrMissingActor
	}

	if !isValidAction(action) {
		return nil, ErrInvalidAction
	}

	return &AuditLog{
		ClientID:  clientID,
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}, nil
}

// isValidAction encapsulates the validation logic for audit actions.
func isValidAction(action AuditAction) bool {
	switch action {
	case ActionTokenIssued, ActionTokenRevoked, ActionTokenInvalid,
		ActionBulkConnect, ActionBulkDisconnect, ActionSessionReset,
		ActionScenarioStart, ActionScenarioStop, ActionHealthProbe, ActionInfo:
		return true
	}
	return false
}
