// Package logging provides structured logging for metapool using zerolog.
// Terminals get a human-readable console writer, everything else gets JSON.
//
// Pool operations carry their logger in the context:
//
//	ctx = logging.WithLogger(ctx, logger)
//	ctx = logging.WithOperation(ctx, "refresh-cache")
//	logging.FromContext(ctx).Debug().Str(logging.FieldDataID, cdid).Msg("Replaced component")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Field names shared by every component that logs pool activity.
const (
	FieldDataID    = "data_id"
	FieldFile      = "file"
	FieldDir       = "dir"
	FieldLocale    = "locale"
	FieldOperation = "operation"
	FieldCount     = "count"
)

var (
	// defaultLogger is the global logger instance, configured from the
	// LOG_* environment variables at startup.
	defaultLogger = NewLoggerFromConfig(EnvConfig())

	// Nop logger for discarding output.
	Nop = zerolog.Nop()
)

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger. The zerolog global logger
// follows it so libraries logging through zerolog/log agree.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Component returns a child of logger tagged with a component data id.
func Component(logger *zerolog.Logger, cdid string) *zerolog.Logger {
	l := logger.With().Str(FieldDataID, cdid).Logger()
	return &l
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
