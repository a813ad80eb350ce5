// Package appcontext provides the shared application context interface
// used by all commands, so command packages depend on an interface rather
// than on the concrete App.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/metapool"
)

// Interface defines the application context that commands need.
// The App struct from cmd/metapool/app implements it.
type Interface interface {
	// Client returns the default client, creating and loading it lazily.
	Client() (metapool.Client, error)

	// ClientWithOptions creates a new client with extra options on top of
	// the configured ones. Use it when a command needs a pool configured
	// differently from the default, e.g. without loading on start.
	ClientWithOptions(...metapool.Option) (metapool.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
