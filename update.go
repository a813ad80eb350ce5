package metapool

import (
	"context"

	"github.com/agentstation/metapool/pkg/logging"
	"github.com/agentstation/metapool/pkg/pool"
)

// Compile-time interface check to ensure proper implementation.
var _ Updater = (*client)(nil)

// AutoUpdateFunc reloads p. It replaces the default reload, p.Load.
type AutoUpdateFunc func(ctx context.Context, p *pool.Pool) error

// Updater reloads the pool.
type Updater interface {
	// Update reloads the pool and runs the hooks for every change
	Update(ctx context.Context) error

	// LoadAsync runs Update on a separate goroutine. The channel receives
	// its result and is closed afterwards.
	LoadAsync(ctx context.Context) <-chan error
}

// Update reloads the pool and runs the hooks for every change. An
// IncompleteError is returned as is; the pool holds the data that loaded.
func (c *client) Update(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithLogger(ctx, logging.FromContextOr(ctx, c.logger))

	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	before := c.pool.Entries()

	var err error
	if c.options.autoUpdateFunc != nil {
		err = c.options.autoUpdateFunc(ctx, c.pool)
	} else {
		err = c.pool.Load(ctx)
	}

	c.hooks.triggerPoolUpdate(before, c.pool.Entries())
	return err
}

// LoadAsync runs Update on a separate goroutine.
func (c *client) LoadAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- c.Update(ctx)
	}()
	return done
}
