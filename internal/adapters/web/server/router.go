package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rangelab/rangectl/internal/adapters/web/middleware"
)

// SetupRoutes builds the routing table.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.ClientIDMiddleware)

	// Mutating session calls hit the gateway; a stuck UI retry loop must
	// not hammer it. Scenario start/stop shells out to VM provisioning
	// and gets a much tighter budget.
	sessionLimiter := middleware.NewRateLimiter(30, 1*time.Minute)
	scenarioLimiter := middleware.NewRateLimiter(5, 1*time.Minute)
	limitSessions := middleware.RateLimitMiddleware(sessionLimiter)
	limitScenarios := middleware.RateLimitMiddleware(scenarioLimiter)

	api := r.PathPrefix("/api").Subrouter()

	// Session lifecycle
	api.HandleFunc("/sessions", s.SessionHandler.HandleList).Methods(http.MethodGet)
	api.Handle("/sessions/connect-all", limitSessions(http.HandlerFunc(s.SessionHandler.HandleConnectAll))).Methods(http.MethodPost)
	api.Handle("/sessions/disconnect-all", limitSessions(http.HandlerFunc(s.SessionHandler.HandleDisconnectAll))).Methods(http.MethodPost)
	api.Handle("/sessions/{role}/connect", limitSessions(http.HandlerFunc(s.SessionHandler.HandleConnect))).Methods(http.MethodPost)
	api.Handle("/sessions/{role}/disconnect", limitSessions(http.HandlerFunc(s.SessionHandler.HandleDisconnect))).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{role}/window", s.SessionHandler.HandleWindow).Methods(http.MethodPost)
	api.HandleFunc("/activity", s.SessionHandler.HandleActivity).Methods(http.MethodPost)

	// Scenario catalog and provisioning
	api.HandleFunc("/scenarios", s.ScenarioHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/{id}", s.ScenarioHandler.HandleGet).Methods(http.MethodGet)
	api.Handle("/scenarios/{id}/start", limitScenarios(http.HandlerFunc(s.ScenarioHandler.HandleStart))).Methods(http.MethodPost)
	api.Handle("/scenarios/{id}/stop", limitScenarios(http.HandlerFunc(s.ScenarioHandler.HandleStop))).Methods(http.MethodPost)
	api.HandleFunc("/range-log", s.ScenarioHandler.HandleLog).Methods(http.MethodGet)

	// Audit trail
	api.HandleFunc("/audit-logs", s.AuditHandler.HandleGetLogs).Methods(http.MethodGet)
	api.HandleFunc("/audit-logs/export", s.AuditHandler.HandleExport).Methods(http.MethodGet)

	// UI push channel
	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)

	// Metrics
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
