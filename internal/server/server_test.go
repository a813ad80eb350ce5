package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/internal/cmd/cmdtest"
	"github.com/agentstation/metapool/internal/server/events"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/logging"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type list struct {
	Components []struct {
		ID string `json:"id"`
	} `json:"components"`
	Total int `json:"total"`
}

func (l list) ids() []string {
	ids := make([]string, 0, len(l.Components))
	for _, c := range l.Components {
		ids = append(ids, c.ID)
	}
	return ids
}

func newServer(t *testing.T, cfg Config) (*Server, http.Handler) {
	t.Helper()
	client := cmdtest.NewClient(t, cmdtest.Fs(t))
	srv, err := New(client, logging.NewTestLogger(t).Logger, cfg)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestComponentEndpoints(t *testing.T) {
	_, h := newServer(t, DefaultConfig())

	tests := []struct {
		name   string
		target string
		want   []string
		total  int
	}{
		{
			name:   "all",
			target: "/api/v1/components",
			want:   []string{"org.example.Editor", "org.example.Editor.Spell", "org.example.Viewer"},
			total:  3,
		},
		{
			name:   "by kind",
			target: "/api/v1/components?kind=addon",
			want:   []string{"org.example.Editor.Spell"},
			total:  1,
		},
		{
			name:   "by category",
			target: "/api/v1/components?category=Graphics",
			want:   []string{"org.example.Viewer"},
			total:  1,
		},
		{
			name:   "category and kind",
			target: "/api/v1/components?category=Graphics&category=Utility&kind=desktop-application",
			want:   []string{"org.example.Editor", "org.example.Viewer"},
			total:  2,
		},
		{
			name:   "paged",
			target: "/api/v1/components?limit=1&offset=1",
			want:   []string{"org.example.Editor.Spell"},
			total:  3,
		},
		{
			name:   "by id",
			target: "/api/v1/components/org.example.Viewer",
			want:   []string{"org.example.Viewer"},
			total:  1,
		},
		{
			name:   "by id with addons",
			target: "/api/v1/components/org.example.Editor?addons=true",
			want:   []string{"org.example.Editor", "org.example.Editor.Spell"},
			total:  2,
		},
		{
			name:   "addons",
			target: "/api/v1/components/org.example.Editor/addons",
			want:   []string{"org.example.Editor.Spell"},
			total:  1,
		},
		{
			name:   "search",
			target: "/api/v1/search?q=images",
			want:   []string{"org.example.Viewer"},
			total:  1,
		},
		{
			name:   "provides media type",
			target: "/api/v1/provides/mediatype/text/plain",
			want:   []string{"org.example.Editor"},
			total:  1,
		},
		{
			name:   "provides nothing",
			target: "/api/v1/provides/library/libfoo.so.1",
			want:   []string{},
			total:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, h, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, status)
			require.Nil(t, env.Error)

			var got list
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Equal(t, tt.want, got.ids())
			assert.Equal(t, tt.total, got.Total)
		})
	}
}

func TestComponentEndpointErrors(t *testing.T) {
	_, h := newServer(t, DefaultConfig())

	tests := []struct {
		name   string
		method string
		target string
		status int
		code   string
	}{
		{"unknown component", http.MethodGet, "/api/v1/components/org.example.Missing", http.StatusNotFound, "NOT_FOUND"},
		{"unknown kind", http.MethodGet, "/api/v1/components?kind=gizmo", http.StatusBadRequest, "BAD_REQUEST"},
		{"bad limit", http.MethodGet, "/api/v1/components?limit=-1", http.StatusBadRequest, "BAD_REQUEST"},
		{"empty search", http.MethodGet, "/api/v1/search", http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown provided kind", http.MethodGet, "/api/v1/provides/gizmo/x", http.StatusBadRequest, "BAD_REQUEST"},
		{"bad force", http.MethodPost, "/api/v1/refresh?force=maybe", http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown endpoint", http.MethodGet, "/api/v1/nothing", http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, h, tt.method, tt.target)
			assert.Equal(t, tt.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestHealthAndStatus(t *testing.T) {
	_, h := newServer(t, DefaultConfig())

	status, _ := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, h, http.MethodGet, "/api/v1/ready")
	assert.Equal(t, http.StatusOK, status)

	status, env := do(t, h, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, status)

	var got struct {
		Locale     string `json:"locale"`
		Flags      string `json:"flags"`
		CachePath  string `json:"cache_path"`
		Components int    `json:"components"`
		Locations  struct {
			XML []string `json:"xml"`
		} `json:"locations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "C", got.Locale)
	assert.Equal(t, "read-collection", got.Flags)
	assert.Equal(t, "/cache/C.gvz", got.CachePath)
	assert.Equal(t, 3, got.Components)
	assert.Equal(t, []string{"/data/xml"}, got.Locations.XML)
}

func TestRefresh(t *testing.T) {
	_, h := newServer(t, DefaultConfig())

	refresh := func(target string) bool {
		status, env := do(t, h, http.MethodPost, target)
		require.Equal(t, http.StatusOK, status)
		var got struct {
			Updated    bool   `json:"updated"`
			CachePath  string `json:"cache_path"`
			Components int    `json:"components"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "/cache/C.gvz", got.CachePath)
		assert.Equal(t, 3, got.Components)
		return got.Updated
	}

	assert.True(t, refresh("/api/v1/refresh"))
	assert.False(t, refresh("/api/v1/refresh"), "cache is current")
	assert.True(t, refresh("/api/v1/refresh?force=true"))
}

func TestAdminDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdminEnabled = false
	_, h := newServer(t, cfg)

	status, _ := do(t, h, http.MethodPost, "/api/v1/reload")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetrics(t *testing.T) {
	_, h := newServer(t, DefaultConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "metapool_server_websocket_clients")
	assert.Contains(t, string(body), "metapool_components")
}

func TestReloadStreamsEvent(t *testing.T) {
	_, h := newServer(t, DefaultConfig())
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/updates/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)

	// wait for the connected event so the stream is registered
	nextEvent := func() string {
		for {
			line, err := r.ReadString('\n')
			require.NoError(t, err)
			if name, ok := strings.CutPrefix(strings.TrimSpace(line), "event: "); ok {
				return name
			}
		}
	}
	require.Equal(t, string(events.ClientConnected), nextEvent())

	post, err := http.Post(ts.URL+"/api/v1/reload", "application/json", nil)
	require.NoError(t, err)
	_ = post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	assert.Equal(t, string(events.PoolReloaded), nextEvent())
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil, logging.NewTestLogger(t).Logger, DefaultConfig())
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "port zero", modify: func(c *Config) { c.Port = 0 }},
		{name: "port too large", modify: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "relative prefix", modify: func(c *Config) { c.PathPrefix = "api" }, wantErr: true},
		{name: "negative timeout", modify: func(c *Config) { c.IdleTimeout = -time.Second }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.IsValidationError(err))
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Equal(t, "localhost:8080", DefaultConfig().Addr())
}
