package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/internal/server/events"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event events.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHub(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	hello := read(t, conn)
	assert.Equal(t, events.ClientConnected, hello.Type)
	assert.Equal(t, 1, hub.ClientCount())

	require.NoError(t, hub.Send(events.Event{
		Type:      events.ComponentAdded,
		Timestamp: time.Now(),
		Data:      map[string]any{"id": "org.example.Editor"},
	}))

	got := read(t, conn)
	assert.Equal(t, events.ComponentAdded, got.Type)
	assert.Equal(t, map[string]any{"id": "org.example.Editor"}, got.Data)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubClose(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	read(t, conn)

	cancel()
	<-done
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "connection is closed after shutdown")
}

func TestHubSendQueueFull(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger, nil)

	for i := 0; i < bufferSize; i++ {
		require.NoError(t, hub.Send(events.Event{Type: events.PoolReloaded}))
	}
	assert.ErrorIs(t, hub.Send(events.Event{Type: events.PoolReloaded}), ErrQueueFull)
}
