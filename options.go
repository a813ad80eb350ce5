package metapool

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/pool"
)

// Option is a function that configures a Client instance
type Option func(*options) error

// options holds the client configuration.
type options struct {
	poolOptions []pool.Option
	logger      *zerolog.Logger
	loadOnStart bool

	autoUpdatesEnabled bool
	autoUpdateInterval time.Duration
	autoUpdateFunc     AutoUpdateFunc

	monitorDebounce time.Duration
}

func defaults() *options {
	return &options{
		loadOnStart:        true,
		autoUpdatesEnabled: false,
		autoUpdateInterval: constants.DefaultReloadInterval,
		monitorDebounce:    constants.MonitorDebounce,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithPoolOptions configures the underlying pool
func WithPoolOptions(opts ...pool.Option) Option {
	return func(o *options) error {
		o.poolOptions = append(o.poolOptions, opts...)
		return nil
	}
}

// WithLogger sets the logger of the client and its pool
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithLoadOnStart configures whether New loads the pool before returning
func WithLoadOnStart(enabled bool) Option {
	return func(o *options) error {
		o.loadOnStart = enabled
		return nil
	}
}

// WithAutoUpdates configures whether the pool is reloaded periodically
func WithAutoUpdates(enabled bool) Option {
	return func(o *options) error {
		o.autoUpdatesEnabled = enabled
		return nil
	}
}

// WithAutoUpdateInterval configures how often the pool is reloaded
func WithAutoUpdateInterval(interval time.Duration) Option {
	return func(o *options) error {
		if interval <= 0 {
			return errors.NewValidationError("autoUpdateInterval", interval, "update interval must be positive")
		}
		o.autoUpdateInterval = interval
		return nil
	}
}

// WithAutoUpdateFunc replaces the default reload, pool.Load, with fn.
func WithAutoUpdateFunc(fn AutoUpdateFunc) Option {
	return func(o *options) error {
		o.autoUpdateFunc = fn
		return nil
	}
}

// WithMonitorDebounce sets how long the change monitor waits for file
// events to settle before it reloads
func WithMonitorDebounce(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.NewValidationError("monitorDebounce", d, "debounce must not be negative")
		}
		o.monitorDebounce = d
		return nil
	}
}
