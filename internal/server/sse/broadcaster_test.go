package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/internal/server/events"
)

// readEvent reads one "event:"/"data:" block from the stream.
func readEvent(t *testing.T, r *bufio.Reader) (string, events.Event) {
	t.Helper()
	var name string
	var event events.Event
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		case line == "":
			return name, event
		}
	}
}

func TestBroadcaster(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	srv := httptest.NewServer(b)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, r)
	assert.Equal(t, string(events.ClientConnected), name)
	assert.Equal(t, 1, b.ClientCount())

	require.NoError(t, b.Send(events.Event{
		Type:      events.ComponentRemoved,
		Timestamp: time.Now(),
		Data:      map[string]any{"id": "org.example.Viewer"},
	}))

	name, event := readEvent(t, r)
	assert.Equal(t, string(events.ComponentRemoved), name)
	assert.Equal(t, events.ComponentRemoved, event.Type)
	assert.Equal(t, map[string]any{"id": "org.example.Viewer"}, event.Data)
}

func TestBroadcasterClose(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger)
	require.NoError(t, b.Close())

	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
