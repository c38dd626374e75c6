package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/ports"
)

// ScenarioHandler serves the scenario catalog and drives the VM
// provisioning backend.
type ScenarioHandler struct {
	Catalog     ports.ScenarioCatalog
	Provisioner ports.Provisioner
	Audit       ports.AuditService
}

// NewScenarioHandler creates a new ScenarioHandler.
func NewScenarioHandler(catalog ports.ScenarioCatalog, provisioner ports.Provisioner, audit ports.AuditService) *ScenarioHandler {
	return &ScenarioHandler{
		Catalog:     catalog,
		Provisioner: provisioner,
		Audit:       audit,
	}
}

// HandleList returns the full catalog.
func (h *ScenarioHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": h.Catalog.List()})
}

// HandleGet returns one scenario by id.
func (h *ScenarioHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Catalog.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Unknown scenario", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleStart brings the scenario's machines up.
func (h *ScenarioHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, ok := h.Catalog.Get(id)
	if !ok {
		http.Error(w, "Unknown scenario", http.StatusNotFound)
		return
	}
	if s.Locked {
		http.Error(w, "Scenario is locked", http.StatusForbidden)
		return
	}

	out, err := h.Provisioner.StartScenario(r.Context(), id)
	if err != nil {
		slog.Error("scenario start failed", "scenario", id, "error", err)
		http.Error(w, "Failed to start scenario: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.auditScenario(r, domain.ActionScenarioStart, id)

	writeJSON(w, http.StatusAccepted, map[string]string{"scenario": id, "status": "starting", "output": out})
}

// HandleStop halts the scenario's machines.
func (h *ScenarioHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.Catalog.Get(id); !ok {
		http.Error(w, "Unknown scenario", http.StatusNotFound)
		return
	}

	out, err := h.Provisioner.StopScenario(r.Context(), id)
	if err != nil {
		slog.Error("scenario stop failed", "scenario", id, "error", err)
		http.Error(w, "Failed to stop scenario: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.auditScenario(r, domain.ActionScenarioStop, id)

	writeJSON(w, http.StatusOK, map[string]string{"scenario": id, "status": "stopped", "output": out})
}

// HandleLog relays the range traffic log.
func (h *ScenarioHandler) HandleLog(w http.ResponseWriter, r *http.Request) {
	out, err := h.Provisioner.TailLog(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch log: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

func (h *ScenarioHandler) auditScenario(r *http.Request, action domain.AuditAction, id string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Log(r.Context(), action, id, ""); err != nil {
		slog.Warn("audit write failed", "action", action, "error", err)
	}
}
