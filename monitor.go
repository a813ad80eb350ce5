package metapool

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ Monitor = (*client)(nil)

// Monitor reloads the pool when its source directories change.
type Monitor interface {
	// MonitorOn starts watching the directories the pool reads from
	MonitorOn() error

	// MonitorOff stops watching
	MonitorOff() error
}

// MonitorOn starts watching the directories the pool reads from. Bursts of
// file events are coalesced into one reload.
func (c *client) MonitorOn() error {
	dirs := c.pool.MonitoredDirs()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.monitorOffLocked()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapResource("create", "watcher", "", err)
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return errors.WrapResource("watch", "directory", dir, err)
		}
	}
	c.logger.Debug().Strs("dirs", dirs).Msg("Monitoring for changes")

	c.watcher = w
	c.monitorStop = make(chan struct{})
	go c.watch(w, c.monitorStop)
	return nil
}

// MonitorOff stops watching.
func (c *client) MonitorOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitorOffLocked()
}

func (c *client) monitorOffLocked() error {
	if c.watcher == nil {
		return nil
	}
	close(c.monitorStop)
	err := c.watcher.Close()
	c.watcher = nil
	c.monitorStop = nil
	return err
}

func (c *client) watch(w *fsnotify.Watcher, stop <-chan struct{}) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			c.logger.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Metadata changed")
			if timer == nil {
				timer = time.NewTimer(c.options.monitorDebounce)
			} else {
				timer.Reset(c.options.monitorDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			ctx, cancel := context.WithTimeout(context.Background(), constants.LoadContextTimeout)
			err := c.Update(ctx)
			cancel()
			if err != nil {
				c.logger.Warn().Err(err).Msg("Reload after change failed")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.logger.Warn().Err(err).Msg("Watcher error")
		case <-stop:
			return
		}
	}
}
