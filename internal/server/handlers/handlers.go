// Package handlers implements the HTTP endpoints of the API server.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/metapool"
	"github.com/agentstation/metapool/internal/server/events"
	"github.com/agentstation/metapool/internal/server/sse"
	"github.com/agentstation/metapool/internal/server/websocket"
	"github.com/agentstation/metapool/pkg/errors"
)

// Handlers serves the API endpoints over a client's pool.
type Handlers struct {
	client    metapool.Client
	broker    *events.Broker
	wsHub     *websocket.Hub
	sse       *sse.Broadcaster
	logger    *zerolog.Logger
	startTime time.Time
}

// New creates the API handlers.
func New(client metapool.Client, broker *events.Broker, wsHub *websocket.Hub, sseBroadcaster *sse.Broadcaster, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		client:    client,
		broker:    broker,
		wsHub:     wsHub,
		sse:       sseBroadcaster,
		logger:    logger,
		startTime: time.Now(),
	}
}

// maxLimit caps page sizes.
const maxLimit = 1000

// pagination reads the limit and offset query parameters. A zero limit
// means no limit.
func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			return 0, 0, errors.NewValidationError("limit", s, "must be a non-negative integer")
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	if s := q.Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, errors.NewValidationError("offset", s, "must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// page slices items by limit and offset.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
