package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rangelab/rangectl/internal/core/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin requests carry no Origin header.
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	},
}

// WSMessage is the envelope for every frame pushed to UI clients.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WSManager pushes session updates to connected UI clients. It observes
// the registry, so every registry write reaches the browser without the
// UI polling.
type WSManager struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan WSMessage
}

// NewWSManager creates a new WSManager.
func NewWSManager() *WSManager {
	return &WSManager{
		clients: make(map[*wsClient]struct{}),
	}
}

// OnSessionUpdated implements the registry observer: each session write
// is fanned out as a session_update frame.
func (m *WSManager) OnSessionUpdated(ctx context.Context, session domain.Session) {
	m.broadcast(WSMessage{Type: "session_update", Payload: session})
}

// BroadcastScenario pushes a scenario lifecycle notice to all clients.
func (m *WSManager) BroadcastScenario(event string, scenarioID string) {
	m.broadcast(WSMessage{Type: "scenario_update", Payload: map[string]string{
		"event":    event,
		"scenario": scenarioID,
	}})
}

// HandleWebSocket upgrades a UI client connection and registers it for
// broadcasts.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan WSMessage, 32),
	}

	m.mu.Lock()
	m.clients[client] = struct{}{}
	m.mu.Unlock()
	slog.Debug("ui client connected", "client_id", client.id)

	go m.writeLoop(client)
	go m.readLoop(client)
}

// ClientCount reports the number of connected UI clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *WSManager) broadcast(msg WSMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for client := range m.clients {
		select {
		case client.send <- msg:
		default:
			// Slow consumer: drop the frame rather than block the
			// registry's notification path.
			slog.Debug("dropping frame for slow ui client", "client_id", client.id)
		}
	}
}

func (m *WSManager) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readLoop drains the connection to process close frames; UI clients
// never send meaningful data upstream.
func (m *WSManager) readLoop(c *wsClient) {
	defer func() {
		m.mu.Lock()
		delete(m.clients, c)
		m.mu.Unlock()
		close(c.send)
		slog.Debug("ui client disconnected", "client_id", c.id)
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
