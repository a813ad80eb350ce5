package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/metapool/internal/server/response"
)

// HandleHealth handles GET /health. It always succeeds while the process
// serves requests.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status": "healthy",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

// HandleReady handles GET /ready. The server is ready once the pool holds
// components.
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	n := h.client.Pool().Len()
	if n == 0 {
		response.ServiceUnavailable(w, "component pool is empty")
		return
	}
	response.OK(w, map[string]any{
		"status":     "ready",
		"components": n,
	})
}

// HandleStatus handles GET /status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	p := h.client.Pool()
	status := StatusResponse{
		Locale:        p.Locale(),
		Architecture:  p.Architecture(),
		Flags:         p.Flags().String(),
		CacheFlags:    p.CacheFlags().String(),
		CachePath:     p.CachePath(),
		Components:    p.Len(),
		Locations:     p.MetadataLocations(),
		MonitoredDirs: p.MonitoredDirs(),
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
		Clients: ClientCounts{
			WebSocket: h.wsHub.ClientCount(),
			SSE:       h.sse.ClientCount(),
		},
	}
	if age, ok := p.CacheAge(); ok {
		s := age.UTC().Format(time.RFC3339)
		status.CacheTime = &s
	}
	response.OK(w, status)
}
