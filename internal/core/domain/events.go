package domain

import "encoding/json"

// EventType identifies a push-channel notification.
type EventType string

const (
	EventUserConnected          EventType = "user_connected"
	EventUserDisconnected       EventType = "user_disconnected"
	EventBulkConnectComplete    EventType = "bulk_connect_complete"
	EventBulkDisconnectComplete EventType = "bulk_disconnect_complete"
	EventScenarioUpdate         EventType = "scenario_update"
	EventSessionReset           EventType = "session_reset"
)

// Event is a typed push-channel notification. Role is set for the
// single-role variants, Result for bulk_connect_complete. Payload keeps
// the raw message for variants the orchestrator passes through.
type Event struct {
	Type    EventType       `json:"type"`
	Role    Role            `json:"role,omitempty"`
	Result  *BulkResult     `json:"result,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Known reports whether the event type is one the orchestrator reacts to.
// Unknown events are ignored, not fatal.
func (e Event) Known() bool {
	switch e.Type {
	case EventUserConnected, EventUserDisconnected,
		EventBulkConnectComplete, EventBulkDisconnectComplete,
		EventScenarioUpdate, EventSessionReset:
		return true
	}
	return false
}
