package metapool

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/logging"
	"github.com/agentstation/metapool/pkg/pool"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client manages a component pool with automatic reloads, change
// monitoring and event hooks.
type Client interface {

	// Pool returns the managed pool. Its queries return copies and are
	// safe for concurrent use.
	Pool() *pool.Pool

	// Updater reloads the pool
	Updater

	// Persistence handles cache operations
	Persistence

	// AutoUpdater provides access to periodic reload controls
	AutoUpdater

	// Monitor provides access to change monitoring controls
	Monitor

	// Hooks provides access to event callback registration
	Hooks

	// Close stops automatic reloads and change monitoring
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options
	pool    *pool.Pool
	logger  *zerolog.Logger

	// updateMu serializes reloads so hooks see consistent snapshots
	updateMu sync.Mutex

	// mu guards the auto update and monitor state
	mu           sync.Mutex
	updateTicker *time.Ticker       // update ticker to trigger auto-updates
	stopCh       chan struct{}      // stop channel to stop auto-updates
	updateCancel context.CancelFunc // cancel function for the update goroutine
	watcher      *fsnotify.Watcher
	monitorStop  chan struct{}

	hooks *hooks
}

// New creates a new Client instance with the given options.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}

	poolOpts := append([]pool.Option{pool.WithLogger(o.logger)}, o.poolOptions...)
	p, err := pool.New(poolOpts...)
	if err != nil {
		return nil, errors.WrapResource("create", "pool", "", err)
	}

	c := &client{
		options: o,
		pool:    p,
		logger:  o.logger,
		stopCh:  make(chan struct{}),
		hooks:   newHooks(),
	}

	if o.loadOnStart {
		c.logger.Debug().Msg("Loading pool")
		if err := c.Update(context.Background()); err != nil {
			if !errors.IsIncomplete(err) {
				return nil, err
			}
			c.logger.Warn().Err(err).Msg("Pool loaded with errors")
		}
		c.logger.Debug().Int("components", p.Len()).Msg("Pool loaded")
	}

	if o.autoUpdatesEnabled {
		if err := c.AutoUpdatesOn(); err != nil {
			return nil, errors.WrapResource("start", "auto-updates", "", err)
		}
	}
	if p.Flags().Has(pool.FlagMonitor) {
		if err := c.MonitorOn(); err != nil {
			_ = c.AutoUpdatesOff()
			return nil, errors.WrapResource("start", "monitor", "", err)
		}
	}
	return c, nil
}

// Pool returns the managed pool.
func (c *client) Pool() *pool.Pool {
	return c.pool
}

// Close stops automatic reloads and change monitoring.
func (c *client) Close() error {
	return errors.Join(c.AutoUpdatesOff(), c.MonitorOff())
}
