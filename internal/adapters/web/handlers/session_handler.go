package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/ports"
	"github.com/rangelab/rangectl/internal/core/services/session"
)

// SessionHandler exposes the session lifecycle over HTTP.
type SessionHandler struct {
	Orchestrator *session.Orchestrator
	Registry     ports.SessionRegistry
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(orchestrator *session.Orchestrator, registry ports.SessionRegistry) *SessionHandler {
	return &SessionHandler{
		Orchestrator: orchestrator,
		Registry:     registry,
	}
}

// HandleList returns the current session table.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":  h.Registry.Snapshot(),
		"poll_only": h.Orchestrator.PollOnly(),
	})
}

// HandleConnect requests a token for the role in the path.
func (h *SessionHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(mux.Vars(r)["role"])

	s, err := h.Orchestrator.Connector.Connect(r.Context(), role)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleDisconnect revokes the role's token.
func (h *SessionHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(mux.Vars(r)["role"])

	if err := h.Orchestrator.Connector.Disconnect(r.Context(), role); err != nil {
		writeSessionError(w, err)
		return
	}
	s, _ := h.Registry.Get(role)
	writeJSON(w, http.StatusOK, s)
}

// HandleConnectAll connects every role in one call. Partial failure
// returns the successes alongside the per-role errors.
func (h *SessionHandler) HandleConnectAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.Orchestrator.Bulk.ConnectAll(r.Context())
	if err != nil {
		var partial *domain.BulkPartialFailure
		if errors.As(err, &partial) {
			writeJSON(w, http.StatusMultiStatus, map[string]any{
				"sessions": h.Registry.Snapshot(),
				"errors":   partial.Errors,
			})
			return
		}
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": h.Registry.Snapshot(),
		"results":  result.Results,
	})
}

// HandleDisconnectAll tears every session down.
func (h *SessionHandler) HandleDisconnectAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Orchestrator.Bulk.DisconnectAll(r.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h.Registry.Snapshot()})
}

// HandleActivity records operator presence. The UI calls this on any
// input event; the health monitor uses it to decide which sessions idle.
func (h *SessionHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	h.Orchestrator.Health.RecordActivity()
	w.WriteHeader(http.StatusNoContent)
}

// HandleWindow stores presentation geometry for a role. The orchestrator
// keeps it verbatim for the UI and never reads it.
func (h *SessionHandler) HandleWindow(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(mux.Vars(r)["role"])

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	var win domain.WindowState
	if err := json.NewDecoder(r.Body).Decode(&win); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s, err := h.Registry.Update(role, domain.SessionPatch{Window: &win})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// writeSessionError maps domain errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	var ge *domain.GatewayError
	switch {
	case errors.Is(err, domain.ErrUnknownRole):
		http.Error(w, "Unknown role", http.StatusNotFound)
	case errors.Is(err, domain.ErrConnectionInFlight):
		http.Error(w, "Connection attempt already in flight", http.StatusConflict)
	case errors.Is(err, domain.ErrRegistryClosed):
		http.Error(w, "Shutting down", http.StatusServiceUnavailable)
	case errors.As(err, &ge):
		http.Error(w, ge.Error(), http.StatusBadGateway)
	default:
		slog.Error("session operation failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}
