// Package errors provides custom error types for the metapool system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join forward to the standard library so callers need a single import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the metapool system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCollision indicates that two components claim the same data id
	// and neither can be picked as the winner
	ErrCollision = errors.New("component collision")

	// ErrIgnored indicates that a component was not added to the pool
	ErrIgnored = errors.New("component ignored")

	// ErrIncomplete indicates that an operation finished but had to drop data
	ErrIncomplete = errors.New("incomplete data")

	// ErrTargetNotWritable indicates that a cache location cannot be written
	ErrTargetNotWritable = errors.New("target not writable")

	// ErrCacheFormat indicates that a cache file is not in the expected format
	ErrCacheFormat = errors.New("cache format mismatch")

	// ErrCacheIO indicates that a cache file could not be read or written
	ErrCacheIO = errors.New("cache I/O failure")

	// ErrInvalidComponent indicates that a component failed validation
	ErrInvalidComponent = errors.New("invalid component")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// CollisionError is returned when a component cannot be added because
// another component already owns its data id.
type CollisionError struct {
	DataID string
	Reason string
}

// Error implements the error interface
func (e *CollisionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("detected colliding ids: %s %s", e.DataID, e.Reason)
	}
	return fmt.Sprintf("detected colliding ids: %s", e.DataID)
}

// Is implements errors.Is support
func (e *CollisionError) Is(target error) bool {
	return target == ErrCollision
}

// NewCollisionError creates a new CollisionError
func NewCollisionError(dataID, reason string) *CollisionError {
	return &CollisionError{DataID: dataID, Reason: reason}
}

// IgnoredError is returned when a component was deliberately kept out of the pool.
type IgnoredError struct {
	DataID string
	Reason string
}

// Error implements the error interface
func (e *IgnoredError) Error() string {
	return fmt.Sprintf("skipping %s from inclusion into the pool: %s", e.DataID, e.Reason)
}

// Is implements errors.Is support
func (e *IgnoredError) Is(target error) bool {
	return target == ErrIgnored
}

// NewIgnoredError creates a new IgnoredError
func NewIgnoredError(dataID, reason string) *IgnoredError {
	return &IgnoredError{DataID: dataID, Reason: reason}
}

// IncompleteError reports an operation that succeeded but discarded data.
// The data that was loaded remains usable.
type IncompleteError struct {
	Operation string
	Invalid   int
	Total     int
	Err       error
}

// Error implements the error interface
func (e *IncompleteError) Error() string {
	msg := fmt.Sprintf("%s incomplete", e.Operation)
	if e.Total > 0 {
		msg = fmt.Sprintf("%s: %d of %d components were invalid", msg, e.Invalid, e.Total)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *IncompleteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

// NotWritableError is returned when a cache location cannot be written to.
type NotWritableError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *NotWritableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache location %s is not writable: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("cache location %s is not writable", e.Path)
}

// Unwrap implements errors.Unwrap
func (e *NotWritableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *NotWritableError) Is(target error) bool {
	return target == ErrTargetNotWritable
}

// CacheFormatError is returned when a cache document cannot be trusted.
// Callers must discard the cache and rebuild it.
type CacheFormatError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *CacheFormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cache format error in %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("cache format error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *CacheFormatError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CacheFormatError) Is(target error) bool {
	return target == ErrCacheFormat
}

// NewCacheFormatError creates a new CacheFormatError
func NewCacheFormatError(path, message string, err error) *CacheFormatError {
	return &CacheFormatError{Path: path, Message: message, Err: err}
}

// CacheIOError wraps an I/O failure that happened while reading or writing a cache.
type CacheIOError struct {
	IOError
}

// Is implements errors.Is support
func (e *CacheIOError) Is(target error) bool {
	return target == ErrCacheIO
}

// Unwrap implements errors.Unwrap
func (e *CacheIOError) Unwrap() error {
	return e.Err
}

// NewCacheIOError creates a new CacheIOError
func NewCacheIOError(operation, path string, err error) *CacheIOError {
	return &CacheIOError{IOError: *NewIOError(operation, path, err)}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCollision checks if an error is a component collision
func IsCollision(err error) bool {
	return errors.Is(err, ErrCollision)
}

// IsIgnored checks if an error reports an ignored component
func IsIgnored(err error) bool {
	return errors.Is(err, ErrIgnored)
}

// IsIncomplete checks if an error only reports partially loaded data
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrIncomplete)
}

// IsCacheUnusable checks if an error means the cache must be rebuilt
func IsCacheUnusable(err error) bool {
	return errors.Is(err, ErrCacheFormat) || errors.Is(err, ErrCacheIO)
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "xml", "yaml", "desktop", etc.
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "load", "refresh", "save"
	Resource  string // "pool", "cache", "component"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapCacheIO wraps an error as a CacheIOError
func WrapCacheIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewCacheIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
