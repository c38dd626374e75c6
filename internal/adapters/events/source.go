// Package events implements the push-channel adapter over a WebSocket
// subscription to the gateway backend.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/telemetry"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultPingInterval     = 25 * time.Second
	defaultInitialBackoff   = time.Second
	defaultMaxBackoff       = 30 * time.Second
)

// Source subscribes to the backend's event stream and delivers typed
// domain events. The events channel stays open across reconnects; it
// closes only on Close, so consumers survive transient channel loss.
type Source struct {
	wsURL        string
	dialer       *websocket.Dialer
	pingInterval time.Duration
	maxBackoff   time.Duration

	events    chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
	connected atomic.Bool

	mu   sync.Mutex
	conn *websocket.Conn
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithPingInterval overrides the keepalive cadence.
func WithPingInterval(d time.Duration) SourceOption {
	return func(s *Source) { s.pingInterval = d }
}

// WithMaxBackoff caps the reconnect delay.
func WithMaxBackoff(d time.Duration) SourceOption {
	return func(s *Source) { s.maxBackoff = d }
}

// NewSource creates a push-channel source for the given endpoint. http
// and https schemes are rewritten to their WebSocket equivalents.
func NewSource(rawURL string, opts ...SourceOption) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid push channel URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	s := &Source{
		wsURL:        u.String(),
		dialer:       &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout},
		pingInterval: defaultPingInterval,
		maxBackoff:   defaultMaxBackoff,
		events:       make(chan domain.Event, 64),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start performs the capability check: one synchronous dial. Failure here
// means the channel is unavailable and the caller should run poll-only;
// after a successful first dial the source keeps itself connected with
// backoff until Close.
func (s *Source) Start(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChannelDisconnected, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.connected.Store(true)

	go s.run(ctx, conn)
	return nil
}

// Events delivers typed notifications until Close.
func (s *Source) Events() <-chan domain.Event {
	return s.events
}

// Connected reports current channel health.
func (s *Source) Connected() bool {
	return s.connected.Load()
}

// Close tears the subscription down and closes the events channel.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
	return nil
}

// run owns the connection for its whole life: read until failure,
// reconnect with exponential backoff, repeat until Close or context
// cancellation. The events channel is closed exactly once, here.
func (s *Source) run(ctx context.Context, conn *websocket.Conn) {
	defer close(s.events)

	for {
		s.readUntilFailure(conn)
		s.connected.Store(false)

		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		var err error
		conn, err = s.redial(ctx)
		if err != nil {
			return
		}
		s.connected.Store(true)
	}
}

// readUntilFailure pumps one connection: a read loop in the foreground
// and a keepalive ping loop beside it. Returns when the connection dies.
func (s *Source) readUntilFailure(conn *websocket.Conn) {
	defer conn.Close()

	pingDone := make(chan struct{})
	defer close(pingDone)
	go s.pingLoop(conn, pingDone)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				slog.Warn("push channel read failed", "error", err)
			}
			return
		}

		var evt domain.Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			telemetry.EventsIgnored.Inc()
			slog.Debug("unparseable push event dropped", "error", err)
			continue
		}
		if evt.Payload == nil {
			evt.Payload = raw
		}

		select {
		case s.events <- evt:
		case <-s.done:
			return
		}
	}
}

func (s *Source) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-s.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// redial retries with exponential backoff until a dial succeeds or the
// source is closed.
func (s *Source) redial(ctx context.Context) (*websocket.Conn, error) {
	backoff := defaultInitialBackoff
	for {
		select {
		case <-s.done:
			return nil, domain.ErrChannelDisconnected
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			slog.Info("push channel reconnected")
			return conn, nil
		}

		slog.Warn("push channel reconnect failed", "error", err, "retry_in", backoff)
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}
