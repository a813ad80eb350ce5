// Package server provides a read-only HTTP API over a component pool, with
// real-time change notifications over WebSocket and Server-Sent Events.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/metapool"
	"github.com/agentstation/metapool/internal/server/events"
	"github.com/agentstation/metapool/internal/server/middleware"
	"github.com/agentstation/metapool/internal/server/sse"
	ws "github.com/agentstation/metapool/internal/server/websocket"
	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	client         metapool.Client
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}
	startTime      time.Time
}

// New creates a new server over client. Pool changes seen by the client
// hooks are published to real-time subscribers once Start is called.
func New(client metapool.Client, logger *zerolog.Logger, cfg Config) (*Server, error) {
	if client == nil {
		return nil, errors.NewValidationError("client", nil, "client is required")
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultConfig().PathPrefix
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger, checkOrigin(cfg))
	sseBroadcaster := sse.NewBroadcaster(logger)

	broker.Subscribe(wsHub)
	broker.Subscribe(sseBroadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		client:         client,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		logger:         logger,
		config:         cfg,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		startTime:      time.Now(),
	}

	s.connectHooks()
	if cfg.MetricsEnabled {
		if err := s.registerMetrics(client.Pool().Metrics().Registry()); err != nil {
			cancel()
			return nil, err
		}
	}

	logger.Debug().Str("prefix", cfg.PathPrefix).Msg("Server instance created")
	return s, nil
}

// checkOrigin builds the WebSocket origin check from the CORS settings.
// Without CORS only same-origin connections are accepted.
func checkOrigin(cfg Config) func(*http.Request) bool {
	if !cfg.CORSEnabled {
		return nil
	}
	if len(cfg.CORSOrigins) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.OriginAllowed(origin, cfg.CORSOrigins)
	}
}

// connectHooks publishes client change hooks to the broker.
func (s *Server) connectHooks() {
	s.client.OnComponentAdded(func(c *components.Component) {
		s.broker.Publish(events.ComponentAdded, map[string]any{
			"component": c,
		})
	})

	s.client.OnComponentUpdated(func(old, updated *components.Component) {
		s.broker.Publish(events.ComponentUpdated, map[string]any{
			"old_component": old,
			"new_component": updated,
		})
	})

	s.client.OnComponentRemoved(func(c *components.Component) {
		s.broker.Publish(events.ComponentRemoved, map[string]any{
			"component": c,
		})
	})

	s.logger.Debug().Msg("Client hooks connected to event broker")
}

// registerMetrics adds the server's collectors to the pool registry. A
// registry shared with an earlier server keeps the first collectors.
func (s *Server) registerMetrics(reg *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "metapool_server_websocket_clients",
			Help: "Connected WebSocket clients.",
		}, func() float64 { return float64(s.wsHub.ClientCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "metapool_server_sse_clients",
			Help: "Connected Server-Sent Events clients.",
		}, func() float64 { return float64(s.sseBroadcaster.ClientCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "metapool_server_events_published_total",
			Help: "Events queued for real-time subscribers.",
		}, func() float64 { return float64(s.broker.EventsPublished()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "metapool_server_events_dropped_total",
			Help: "Events dropped on a full queue.",
		}, func() float64 { return float64(s.broker.EventsDropped()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var exists prometheus.AlreadyRegisteredError
			if errors.As(err, &exists) {
				continue
			}
			return errors.NewConfigError("server", "registering metrics", err)
		}
	}
	return nil
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	running := make(chan struct{}, 3)
	run := func(fn func(context.Context)) {
		go func() {
			fn(s.ctx)
			running <- struct{}{}
		}()
	}
	run(s.broker.Run)
	run(s.wsHub.Run)
	run(s.sseBroadcaster.Run)

	go func() {
		for range 3 {
			<-running
		}
		close(s.done)
	}()
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops the background services and waits for them until ctx
// is done. It must be called after Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()

	select {
	case <-s.done:
		s.logger.Info().Msg("Background services shut down")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
