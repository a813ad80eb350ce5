// Package diagnostics collects non-fatal problems found while building or
// decoding component data, so callers can inspect what was skipped and why.
package diagnostics

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Severity classifies a diagnostic.
type Severity string

// Severity values.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// String returns the string representation of a severity.
func (s Severity) String() string {
	return string(s)
}

// Diagnostic is a single recorded problem.
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity"`                   // How serious the problem is
	Subject  string   `json:"subject,omitempty" yaml:"subject,omitempty"` // Component data id, file or field concerned
	Message  string   `json:"message" yaml:"message"`                     // Human readable description
}

// String formats the diagnostic as "severity: subject: message".
func (d Diagnostic) String() string {
	if d.Subject == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Subject, d.Message)
}

// Diagnostics accumulates diagnostics in the order they were recorded.
type Diagnostics []Diagnostic

// Add records a diagnostic.
func (ds *Diagnostics) Add(severity Severity, subject, format string, args ...any) {
	*ds = append(*ds, Diagnostic{
		Severity: severity,
		Subject:  subject,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Infof records an informational diagnostic.
func (ds *Diagnostics) Infof(subject, format string, args ...any) {
	ds.Add(SeverityInfo, subject, format, args...)
}

// Warnf records a warning.
func (ds *Diagnostics) Warnf(subject, format string, args ...any) {
	ds.Add(SeverityWarning, subject, format, args...)
}

// Errorf records an error-level diagnostic.
func (ds *Diagnostics) Errorf(subject, format string, args ...any) {
	ds.Add(SeverityError, subject, format, args...)
}

// Extend appends all diagnostics of other.
func (ds *Diagnostics) Extend(other Diagnostics) {
	*ds = append(*ds, other...)
}

// Count returns the number of diagnostics with the given severity.
func (ds Diagnostics) Count(severity Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == severity {
			n++
		}
	}
	return n
}

// Log mirrors every diagnostic to logger at debug level.
func (ds Diagnostics) Log(logger *zerolog.Logger) {
	if logger == nil {
		return
	}
	for _, d := range ds {
		logger.Debug().
			Str("severity", d.Severity.String()).
			Str("subject", d.Subject).
			Msg(d.Message)
	}
}
