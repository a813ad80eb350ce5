package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/agentstation/metapool/internal/server/events"
	"github.com/agentstation/metapool/internal/server/response"
	"github.com/agentstation/metapool/pkg/errors"
)

// RefreshResponse reports the outcome of a cache refresh.
type RefreshResponse struct {
	Updated    bool   `json:"updated"`
	CachePath  string `json:"cache_path"`
	Components int    `json:"components"`
	Warning    string `json:"warning,omitempty"`
}

// HandleRefresh handles POST /refresh. With force=true the cache is
// rebuilt even when it is current.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	force := false
	if s := r.URL.Query().Get("force"); s != "" {
		var err error
		if force, err = strconv.ParseBool(s); err != nil {
			response.ErrorFromType(w, errors.NewValidationError("force", s, "must be a boolean"))
			return
		}
	}

	updated, err := h.client.RefreshCache(r.Context(), force)
	resp := RefreshResponse{Updated: updated}
	if err != nil {
		if !errors.IsIncomplete(err) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Cache refresh failed")
			response.ErrorFromType(w, err)
			return
		}
		resp.Warning = err.Error()
	}

	p := h.client.Pool()
	resp.CachePath = p.CachePath()
	resp.Components = p.Len()
	if updated {
		h.broker.Publish(events.PoolCacheRefreshed, resp)
	}
	response.OK(w, resp)
}

// ReloadResponse reports the outcome of a pool reload.
type ReloadResponse struct {
	Components int    `json:"components"`
	Warning    string `json:"warning,omitempty"`
}

// HandleReload handles POST /reload.
func (h *Handlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	resp := ReloadResponse{}
	if err := h.client.Update(r.Context()); err != nil {
		if !errors.IsIncomplete(err) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Pool reload failed")
			response.ErrorFromType(w, err)
			return
		}
		resp.Warning = err.Error()
	}
	resp.Components = h.client.Pool().Len()
	h.broker.Publish(events.PoolReloaded, resp)
	response.OK(w, resp)
}
