package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelab/rangectl/internal/core/domain"
)

var upgrader = websocket.Upgrader{}

// pushServer is a minimal event stream endpoint feeding raw frames to
// every subscriber.
type pushServer struct {
	*httptest.Server
	frames chan []byte
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{frames: make(chan []byte, 16)}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for frame := range ps.frames {
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ps.Close)
	return ps
}

func waitEvent(t *testing.T, src *Source) domain.Event {
	t.Helper()
	select {
	case evt := <-src.Events():
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

func TestSource_DeliversTypedEvents(t *testing.T) {
	srv := newPushServer(t)
	src, err := NewSource(srv.URL)
	require.NoError(t, err)
	require.NoError(t, src.Start(context.Background()))
	defer src.Close()

	assert.True(t, src.Connected())

	srv.frames <- []byte(`{"type": "user_connected", "role": "victim"}`)
	evt := waitEvent(t, src)
	assert.Equal(t, domain.EventUserConnected, evt.Type)
	assert.Equal(t, domain.RoleVictim, evt.Role)

	srv.frames <- []byte(`{"type": "bulk_connect_complete", "result": {"results": {"attacker": {"token": "tok-a"}}}}`)
	evt = waitEvent(t, src)
	assert.Equal(t, domain.EventBulkConnectComplete, evt.Type)
	require.NotNil(t, evt.Result)
	assert.Equal(t, "tok-a", evt.Result.Results[domain.RoleAttacker].Token)
}

func TestSource_MalformedFramesDropped(t *testing.T) {
	srv := newPushServer(t)
	src, err := NewSource(srv.URL)
	require.NoError(t, err)
	require.NoError(t, src.Start(context.Background()))
	defer src.Close()

	srv.frames <- []byte(`{not json`)
	srv.frames <- []byte(`{"type": "user_disconnected", "role": "attacker"}`)

	// Only the well-formed frame comes through.
	evt := waitEvent(t, src)
	assert.Equal(t, domain.EventUserDisconnected, evt.Type)
}

func TestSource_StartFailsWhenEndpointDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	src, err := NewSource(srv.URL)
	require.NoError(t, err)

	err = src.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChannelDisconnected)
	assert.False(t, src.Connected())
}

func TestSource_ReconnectsAfterDrop(t *testing.T) {
	var conns int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns++
		if conns == 1 {
			// First connection dies immediately.
			conn.Close()
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "session_reset"}`))
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	src, err := NewSource(srv.URL, WithMaxBackoff(50*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, src.Start(context.Background()))
	defer src.Close()

	evt := waitEvent(t, src)
	assert.Equal(t, domain.EventSessionReset, evt.Type)
	assert.True(t, src.Connected())
}

func TestSource_CloseEndsEventStream(t *testing.T) {
	srv := newPushServer(t)
	src, err := NewSource(srv.URL)
	require.NoError(t, err)
	require.NoError(t, src.Start(context.Background()))

	require.NoError(t, src.Close())
	require.NoError(t, src.Close()) // idempotent

	select {
	case _, ok := <-src.Events():
		assert.False(t, ok, "events channel closes on Close")
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}

func TestNewSource_RewritesScheme(t *testing.T) {
	src, err := NewSource("https://gw.example/events")
	require.NoError(t, err)
	assert.Equal(t, "wss://gw.example/events", src.wsURL)

	_, err = NewSource("://bad")
	assert.Error(t, err)
}
