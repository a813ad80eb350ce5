package metapool

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoUpdater = (*client)(nil)

// AutoUpdater provides controls for periodic pool reloads.
type AutoUpdater interface {
	// AutoUpdatesOn begins periodic reloads
	AutoUpdatesOn() error

	// AutoUpdatesOff stops periodic reloads
	AutoUpdatesOff() error
}

// AutoUpdatesOn begins periodic reloads.
func (c *client) AutoUpdatesOn() error {
	if c.options.autoUpdateInterval <= 0 {
		return &errors.ValidationError{
			Field:   "autoUpdateInterval",
			Value:   c.options.autoUpdateInterval,
			Message: "update interval must be positive",
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// stop any running loop first
	c.autoUpdatesOffLocked()

	c.stopCh = make(chan struct{})
	c.updateTicker = time.NewTicker(c.options.autoUpdateInterval)

	ctx, cancel := context.WithCancel(context.Background())
	c.updateCancel = cancel

	go c.autoUpdateLoop(ctx, c.updateTicker.C, c.stopCh)
	return nil
}

func (c *client) autoUpdateLoop(parentCtx context.Context, tick <-chan time.Time, stop <-chan struct{}) {
	for {
		select {
		case <-tick:
			updateCtx, updateCancel := context.WithTimeout(parentCtx, constants.LoadContextTimeout)
			err := c.Update(updateCtx)
			updateCancel()

			if err != nil {
				if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
					return
				}
				c.logger.Error().Err(err).Msg("Auto-update failed")
			}
		case <-parentCtx.Done():
			return
		case <-stop:
			return
		}
	}
}

// AutoUpdatesOff stops periodic reloads.
func (c *client) AutoUpdatesOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoUpdatesOffLocked()
	return nil
}

func (c *client) autoUpdatesOffLocked() {
	if c.updateTicker != nil {
		c.updateTicker.Stop()
		c.updateTicker = nil
	}
	if c.updateCancel != nil {
		c.updateCancel()
		c.updateCancel = nil
	}
	select {
	case <-c.stopCh:
		// already closed
	default:
		close(c.stopCh)
	}
}
