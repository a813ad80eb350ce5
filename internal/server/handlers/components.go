package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/agentstation/metapool/internal/server/response"
	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/pool"
)

// ListResponse is the payload of the list endpoints.
type ListResponse struct {
	Components []*components.Component `json:"components"`
	Total      int                     `json:"total"`
	Limit      int                     `json:"limit,omitempty"`
	Offset     int                     `json:"offset,omitempty"`
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request, cpts []*components.Component) {
	limit, offset, err := pagination(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if cpts == nil {
		cpts = []*components.Component{}
	}
	response.OK(w, ListResponse{
		Components: page(cpts, limit, offset),
		Total:      len(cpts),
		Limit:      limit,
		Offset:     offset,
	})
}

// HandleListComponents handles GET /components.
//
// Query parameters:
//   - kind: component type, e.g. desktop-application
//   - category: repeatable, matches components in any of them
//   - limit, offset: pagination
func (h *Handlers) HandleListComponents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := h.client.Pool()

	kind := components.KindUnknown
	if s := q.Get("kind"); s != "" {
		if kind = components.ParseKind(s); kind == components.KindUnknown {
			response.ErrorFromType(w, errors.NewValidationError("kind", s, "unknown component type"))
			return
		}
	}

	var cpts []*components.Component
	switch categories := q["category"]; {
	case len(categories) > 0:
		cpts = p.ByCategories(categories...)
		if kind != components.KindUnknown {
			filtered := cpts[:0]
			for _, c := range cpts {
				if c.Kind == kind {
					filtered = append(filtered, c)
				}
			}
			cpts = filtered
		}
	case kind != components.KindUnknown:
		cpts = p.ByKind(kind)
	default:
		cpts = p.Components()
	}
	h.list(w, r, cpts)
}

// HandleGetComponent handles GET /components/{id}. The id may be a bare
// component id or a data id. Addons follow their components with
// addons=true or when the pool resolves addons.
func (h *Handlers) HandleGetComponent(w http.ResponseWriter, r *http.Request) {
	cpts, err := h.lookup(r.PathValue("id"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	withAddons := h.client.Pool().Flags().Has(pool.FlagResolveAddons)
	if s := r.URL.Query().Get("addons"); s != "" {
		if withAddons, err = strconv.ParseBool(s); err != nil {
			response.ErrorFromType(w, errors.NewValidationError("addons", s, "must be a boolean"))
			return
		}
	}
	if withAddons {
		cpts = append(cpts, h.addons(cpts)...)
	}
	h.list(w, r, cpts)
}

// HandleGetAddons handles GET /components/{id}/addons.
func (h *Handlers) HandleGetAddons(w http.ResponseWriter, r *http.Request) {
	cpts, err := h.lookup(r.PathValue("id"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.list(w, r, h.addons(cpts))
}

// addons returns the addons of cpts, each once.
func (h *Handlers) addons(cpts []*components.Component) []*components.Component {
	p := h.client.Pool()
	seen := make(map[string]bool)
	var out []*components.Component
	for _, c := range cpts {
		for _, addon := range p.Addons(c.DataID()) {
			if !seen[addon.DataID()] {
				seen[addon.DataID()] = true
				out = append(out, addon)
			}
		}
	}
	return out
}

func (h *Handlers) lookup(id string) ([]*components.Component, error) {
	if id == "" {
		return nil, errors.NewValidationError("id", id, "component id is required")
	}
	p := h.client.Pool()
	if strings.Contains(id, "/") {
		if c, ok := p.ByDataID(id); ok {
			return []*components.Component{c}, nil
		}
	} else if cpts := p.ByID(id); len(cpts) > 0 {
		return cpts, nil
	}
	return nil, errors.NewNotFoundError("component", id)
}

// HandleSearch handles GET /search?q=term.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		response.ErrorFromType(w, errors.NewValidationError("q", term, "search term is required"))
		return
	}
	h.list(w, r, h.client.Pool().Search(term))
}

// HandleProvides handles GET /provides/{kind}/{item...}. Items such as
// media types may contain slashes.
func (h *Handlers) HandleProvides(w http.ResponseWriter, r *http.Request) {
	s := r.PathValue("kind")
	kind := components.ParseProvidedKind(s)
	if kind == components.ProvidedKindUnknown {
		response.ErrorFromType(w, errors.NewValidationError("kind", s, "unknown provided kind"))
		return
	}
	item := r.PathValue("item")
	if item == "" {
		response.ErrorFromType(w, errors.NewValidationError("item", item, "provided item is required"))
		return
	}
	h.list(w, r, h.client.Pool().ByProvidedItem(kind, item))
}

// StatusResponse describes the served pool.
type StatusResponse struct {
	Locale        string         `json:"locale"`
	Architecture  string         `json:"architecture"`
	Flags         string         `json:"flags"`
	CacheFlags    string         `json:"cache_flags"`
	CachePath     string         `json:"cache_path,omitempty"`
	CacheTime     *string        `json:"cache_time,omitempty"`
	Components    int            `json:"components"`
	Locations     pool.Locations `json:"locations"`
	MonitoredDirs []string       `json:"monitored_dirs,omitempty"`
	Uptime        string         `json:"uptime"`
	Clients       ClientCounts   `json:"clients"`
}

// ClientCounts counts connected real-time clients.
type ClientCounts struct {
	WebSocket int `json:"websocket"`
	SSE       int `json:"sse"`
}
