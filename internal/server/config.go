package server

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/metapool/pkg/errors"
)

// Config controls how the metadata API is exposed.
type Config struct {
	Host string
	Port int

	// PathPrefix is mounted in front of every component route.
	PathPrefix string

	CORSEnabled bool
	CORSOrigins []string // exact origins or glob patterns

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MetricsEnabled bool
	AdminEnabled   bool // POST /refresh and /reload
}

// DefaultConfig binds to localhost with metrics and admin routes enabled.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		PathPrefix:     "/api/v1",
		CORSOrigins:    []string{},
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
		AdminEnabled:   true,
	}
}

// Addr is the host:port the HTTP listener binds to.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports the first field that cannot be served.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.NewValidationError("port", c.Port, "port out of range")
	}
	if c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/") {
		return errors.NewValidationError("prefix", c.PathPrefix, "path prefix must start with /")
	}
	for _, d := range []time.Duration{c.ReadTimeout, c.WriteTimeout, c.IdleTimeout} {
		if d < 0 {
			return errors.NewValidationError("timeout", d, "timeouts must not be negative")
		}
	}
	return nil
}
