// Package mock provides an in-process stand-in for the remote-access
// gateway backend, for development without real range infrastructure.
package mock

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rangelab/rangectl/internal/core/domain"
)

var upgrader = websocket.Upgrader{
	// Mock mode only; accept everything.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type roleState struct {
	connectionID string
	token        string
}

// GatewayServer simulates the gateway REST surface and its push channel
// on a loopback listener.
type GatewayServer struct {
	mu      sync.Mutex
	roles   map[domain.Role]*roleState
	clients map[*websocket.Conn]bool

	listener net.Listener
	srv      *http.Server
}

// NewGatewayServer creates a mock gateway covering the default roles.
func NewGatewayServer() *GatewayServer {
	return &GatewayServer{
		roles: map[domain.Role]*roleState{
			domain.RoleVictim:   {connectionID: "12"},
			domain.RoleAttacker: {connectionID: "13"},
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Start binds a loopback port and serves until Stop.
func (g *GatewayServer) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	g.listener = ln

	r := mux.NewRouter()
	r.HandleFunc("/api/status", g.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/token/{role}", g.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/api/disconnect/{role}", g.handleDisconnect).Methods(http.MethodPost)
	r.HandleFunc("/api/connect-all", g.handleConnectAll).Methods(http.MethodPost)
	r.HandleFunc("/api/disconnect-all", g.handleDisconnectAll).Methods(http.MethodPost)
	r.HandleFunc("/api/connections/{role}", g.handleValidate).Methods(http.MethodGet)
	r.HandleFunc("/events", g.handleEvents)

	g.srv = &http.Server{Handler: r}
	go func() {
		if err := g.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("mock gateway stopped", "error", err)
		}
	}()

	slog.Info("mock gateway listening", "url", g.BaseURL())
	return nil
}

// Stop shuts the mock gateway down.
func (g *GatewayServer) Stop() {
	if g.srv != nil {
		_ = g.srv.Close()
	}
	g.mu.Lock()
	for conn := range g.clients {
		_ = conn.Close()
	}
	g.clients = make(map[*websocket.Conn]bool)
	g.mu.Unlock()
}

// BaseURL returns the REST base URL.
func (g *GatewayServer) BaseURL() string {
	return "http://" + g.listener.Addr().String()
}

// EventsURL returns the push channel endpoint.
func (g *GatewayServer) EventsURL() string {
	return g.BaseURL() + "/events"
}

func (g *GatewayServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	roles := make(map[string]map[string]any, len(g.roles))
	for role, st := range g.roles {
		roles[string(role)] = map[string]any{
			"display_name":     displayName(role),
			"connection_id":    st.connectionID,
			"has_active_token": st.token != "",
		}
	}
	g.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"roles": roles,
		"meta":  map[string]string{"mode": "mock"},
	})
}

func (g *GatewayServer) handleToken(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(mux.Vars(r)["role"])

	g.mu.Lock()
	st, ok := g.roles[role]
	if !ok {
		g.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown role"})
		return
	}
	st.token = newToken()
	token := st.token
	g.mu.Unlock()

	g.broadcast(domain.Event{Type: domain.EventUserConnected, Role: role})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (g *GatewayServer) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(mux.Vars(r)["role"])

	g.mu.Lock()
	st, ok := g.roles[role]
	if !ok {
		g.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown role"})
		return
	}
	st.token = ""
	g.mu.Unlock()

	g.broadcast(domain.Event{Type: domain.EventUserDisconnected, Role: role})
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

func (g *GatewayServer) handleConnectAll(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]map[string]string)

	g.mu.Lock()
	for role, st := range g.roles {
		st.token = newToken()
		results[string(role)] = map[string]string{"token": st.token}
	}
	g.mu.Unlock()

	evt := domain.Event{Type: domain.EventBulkConnectComplete, Result: &domain.BulkResult{
		Results: make(map[domain.Role]domain.RoleGrant),
	}}
	for name, grant := range results {
		evt.Result.Results[domain.Role(name)] = domain.RoleGrant{Token: grant["token"]}
	}
	g.broadcast(evt)

	writeJSON(w, http.StatusOK, map[string]any{"results": results, "errors": map[string]string{}})
}

func (g *GatewayServer) handleDisconnectAll(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	for _, st := range g.roles {
		st.token = ""
	}
	g.mu.Unlock()

	g.broadcast(domain.Event{Type: domain.EventBulkDisconnectComplete})
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

func (g *GatewayServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(mux.Vars(r)["role"])

	g.mu.Lock()
	st, ok := g.roles[role]
	valid := ok && st.token != ""
	g.mu.Unlock()

	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no active token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "valid"})
}

func (g *GatewayServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	g.mu.Lock()
	g.clients[conn] = true
	g.mu.Unlock()

	go func() {
		defer func() {
			g.mu.Lock()
			delete(g.clients, conn)
			g.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ExpireToken drops a role's token without an event, simulating silent
// server-side expiry that only polling or probing can discover.
func (g *GatewayServer) ExpireToken(role domain.Role) {
	g.mu.Lock()
	if st, ok := g.roles[role]; ok {
		st.token = ""
	}
	g.mu.Unlock()
}

func (g *GatewayServer) broadcast(evt domain.Event) {
	raw, err := json.Marshal(evt)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for conn := range g.clients {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			delete(g.clients, conn)
			_ = conn.Close()
		}
	}
}

func displayName(role domain.Role) string {
	switch role {
	case domain.RoleVictim:
		return "Victim"
	case domain.RoleAttacker:
		return "Attacker"
	}
	return string(role)
}

func newToken() string {
	return fmt.Sprintf("mock-%08x", rand.Uint32())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
