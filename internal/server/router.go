package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/metapool/internal/server/handlers"
	"github.com/agentstation/metapool/internal/server/middleware"
	"github.com/agentstation/metapool/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()
	h := handlers.New(s.client, s.broker, s.wsHub, s.sseBroadcaster, s.logger)
	s.registerRoutes(mux, h)
	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Health
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Components
	mux.HandleFunc("GET "+prefix+"/components", h.HandleListComponents)
	mux.HandleFunc("GET "+prefix+"/components/{id}", h.HandleGetComponent)
	mux.HandleFunc("GET "+prefix+"/components/{id}/addons", h.HandleGetAddons)
	mux.HandleFunc("GET "+prefix+"/search", h.HandleSearch)
	mux.HandleFunc("GET "+prefix+"/provides/{kind}/{item...}", h.HandleProvides)
	mux.HandleFunc("GET "+prefix+"/status", h.HandleStatus)

	// Admin
	if s.config.AdminEnabled {
		mux.HandleFunc("POST "+prefix+"/refresh", h.HandleRefresh)
		mux.HandleFunc("POST "+prefix+"/reload", h.HandleReload)
	}

	// Real-time updates
	mux.HandleFunc("GET "+prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+prefix+"/updates/stream", h.HandleSSE)

	if s.config.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.HandlerFor(
			s.client.Pool().Metrics().Registry(),
			promhttp.HandlerOpts{},
		))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Endpoint not found", r.Method+" "+r.URL.Path)
	})
}

// applyMiddleware wraps the mux with the middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
	}
	if s.config.CORSEnabled {
		cors := middleware.DefaultCORSConfig()
		if len(s.config.CORSOrigins) > 0 {
			cors.AllowedOrigins = s.config.CORSOrigins
		} else {
			cors.AllowAll = true
		}
		chain = append(chain, middleware.CORS(cors))
	}
	return middleware.Chain(chain...)(handler)
}
