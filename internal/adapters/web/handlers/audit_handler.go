package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rangelab/rangectl/internal/adapters/reporting"
	"github.com/rangelab/rangectl/internal/core/ports"
)

// AuditHandler serves the audit trail.
type AuditHandler struct {
	Service  ports.AuditService
	Exporter *reporting.PDFExporter
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(service ports.AuditService) *AuditHandler {
	return &AuditHandler{
		Service:  service,
		Exporter: reporting.NewPDFExporter(),
	}
}

// HandleGetLogs returns recent audit entries, newest first.
func (h *AuditHandler) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	logs, err := h.Service.GetLogs(r.Context(), limit)
	if err != nil {
		slog.Error("audit log fetch failed", "error", err)
		http.Error(w, "Failed to fetch logs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// HandleExport renders the recent audit trail as a downloadable PDF.
func (h *AuditHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Service.GetLogs(r.Context(), 1000)
	if err != nil {
		slog.Error("audit log fetch failed", "error", err)
		http.Error(w, "Failed to fetch logs", http.StatusInternalServerError)
		return
	}

	data, err := h.Exporter.ExportAuditTrail(logs)
	if err != nil {
		slog.Error("audit export failed", "error", err)
		http.Error(w, "Failed to generate report", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("audit-%s.pdf", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
