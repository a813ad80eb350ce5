// Package app provides the application context and dependency management
// for the metapool CLI. It centralizes configuration, logging and the
// lifecycle of the component pool client.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/metapool"
	"github.com/agentstation/metapool/internal/appcontext"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/pool"
)

var _ appcontext.Interface = (*App)(nil)

// App represents the metapool application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Client instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	client metapool.Client
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration from files and the environment
// that can be customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Client returns the client instance, creating it lazily if needed.
// Only one instance is ever created.
func (a *App) Client() (metapool.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.buildClientOptions()
	if err != nil {
		return nil, err
	}
	c, err := metapool.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}

	a.client = c
	return c, nil
}

// ClientWithOptions returns a new client built from the configuration plus
// the given options. The caller owns the client and must close it.
func (a *App) ClientWithOptions(extra ...metapool.Option) (metapool.Client, error) {
	opts, err := a.buildClientOptions()
	if err != nil {
		return nil, err
	}
	c, err := metapool.New(append(opts, extra...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "with custom options", err)
	}
	return c, nil
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.RLock()
	c := a.client
	a.mu.RUnlock()

	if c != nil {
		if err := c.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close client during shutdown")
			return err
		}
	}
	return nil
}

// buildClientOptions constructs client options from the app configuration.
func (a *App) buildClientOptions() ([]metapool.Option, error) {
	flags, err := a.config.PoolFlags()
	if err != nil {
		return nil, err
	}
	cacheFlags, err := pool.ParseCacheFlags(a.config.CacheFlags)
	if err != nil {
		return nil, err
	}

	poolOpts := []pool.Option{
		pool.WithFlags(flags),
		pool.WithCacheFlags(cacheFlags),
	}
	if len(a.config.MetadataDirs) > 0 {
		poolOpts = append(poolOpts, pool.WithMetadataLocations(a.config.MetadataDirs...))
	}
	if a.config.Locale != "" {
		poolOpts = append(poolOpts, pool.WithLocale(a.config.Locale))
	}
	if a.config.SystemCacheDir != "" {
		poolOpts = append(poolOpts, pool.WithSystemCacheDir(a.config.SystemCacheDir))
	}
	if a.config.UserCacheDir != "" {
		poolOpts = append(poolOpts, pool.WithUserCacheDir(a.config.UserCacheDir))
	}
	if a.config.ScreenshotService != "" {
		poolOpts = append(poolOpts, pool.WithScreenshotService(a.config.ScreenshotService))
	}

	opts := []metapool.Option{
		metapool.WithLogger(a.logger),
		metapool.WithPoolOptions(poolOpts...),
		metapool.WithAutoUpdates(a.config.AutoUpdatesEnabled),
	}
	if a.config.AutoUpdateInterval > 0 {
		opts = append(opts, metapool.WithAutoUpdateInterval(a.config.AutoUpdateInterval))
	}
	return opts, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a prebuilt client (useful for testing).
func WithClient(c metapool.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}
