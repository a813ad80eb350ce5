package metapool

import (
	"context"

	"github.com/agentstation/metapool/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ Persistence = (*client)(nil)

// Persistence handles cache operations.
type Persistence interface {
	// RefreshCache rebuilds the pool cache, see pool.Pool.RefreshCache
	RefreshCache(ctx context.Context, force bool) (bool, error)

	// SaveCache writes the pool contents to a cache file at path
	SaveCache(ctx context.Context, path string) error
}

// RefreshCache rebuilds the pool cache. The pool holds the refreshed data
// afterwards and the hooks run for every change.
func (c *client) RefreshCache(ctx context.Context, force bool) (bool, error) {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	before := c.pool.Entries()
	updated, err := c.pool.RefreshCache(ctx, force)
	if updated {
		c.hooks.triggerPoolUpdate(before, c.pool.Entries())
	}
	return updated, err
}

// SaveCache writes the pool contents to a cache file at path.
func (c *client) SaveCache(ctx context.Context, path string) error {
	if path == "" {
		return errors.NewValidationError("path", path, "cache path is required")
	}
	return c.pool.SaveCache(ctx, path)
}
