package domain

import (
	"encoding/json"
	"time"
)

// Role identifies a named actor with its own remote-access session.
type Role string

const (
	RoleVictim   Role = "victim"
	RoleAttacker Role = "attacker"
)

// DefaultRoles returns the role set a scenario context starts with.
func DefaultRoles() []Role {
	return []Role{RoleVictim, RoleAttacker}
}

// WindowState holds presentation-only geometry for a session's window.
// The orchestrator stores it verbatim for the UI layer and never reads it.
type WindowState struct {
	X         int  `json:"x"`
	Y         int  `json:"y"`
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Minimized bool `json:"minimized"`
}

// Session is the orchestrator's local view of one role's connection state.
// Exactly one Session exists per Role for the lifetime of the registry.
type Session struct {
	Role          Role        `json:"role"`
	IsActive      bool        `json:"is_active"`
	HasValidToken bool        `json:"has_valid_token"`
	Token         string      `json:"token,omitempty"`
	ConnectionURL string      `json:"connection_url,omitempty"`
	LastActivity  time.Time   `json:"last_activity"`
	Window        WindowState `json:"window"`
}

// SessionPatch is a partial update merged atomically into a Session.
// Nil fields are left untouched.
type SessionPatch struct {
	IsActive      *bool
	HasValidToken *bool
	Token         *string
	ConnectionURL *string
	LastActivity  *time.Time
	Window        *WindowState
}

// Pointer helpers for building patches.

func Bool(v bool) *bool { return &v }

func Str(v string) *string { return &v }

func Time(v time.Time) *time.Time { return &v }

// RoleConfig is the server-reported, read-only configuration for a role.
// HasActiveToken is only used to seed Session state.
type RoleConfig struct {
	Role           Role   `json:"role"`
	DisplayName    string `json:"display_name"`
	Description    string `json:"description"`
	ColorTheme     string `json:"color_theme"`
	ConnectionID   string `json:"connection_id"`
	HasActiveToken bool   `json:"has_active_token"`
}

// SystemStatus is an aggregate snapshot pulled from the gateway backend.
// Meta carries opaque scenario/session metadata, passed through unmodified.
type SystemStatus struct {
	Roles map[Role]RoleConfig `json:"roles"`
	Meta  json.RawMessage     `json:"meta,omitempty"`
}

// RoleGrant is the success payload of a token request.
type RoleGrant struct {
	Token         string `json:"token"`
	ConnectionURL string `json:"connection_url"`
}

// BulkResult maps each role to either a grant or an error message.
// Roles absent from both maps are untouched by the operation.
type BulkResult struct {
	Results map[Role]RoleGrant `json:"results"`
	Errors  map[Role]string    `json:"errors"`
}
