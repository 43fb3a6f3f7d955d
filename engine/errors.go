/*
errors.go - Centralized error types for the eligibility engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The rule set itself never returns an error: it always produces a
  decision, degrading to best-available data. Only the sync adapter
  and the cache surface raw errors, and both are recoverable.

ERROR CATEGORIES:
  1. Format errors  - Malformed clock strings or windows (local bug)
  2. Adapter errors - Network/server failures, recovered via cache fallback
  3. Storage errors - Cache read/write failures, treated as cold cache

USAGE:
  if errors.Is(err, engine.ErrNetwork) {
      // evaluate against cached state instead
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFormat is returned for malformed time strings. With validated
	// input this should not occur; hot UI paths use MinuteOfDayOrNone
	// which returns a sentinel value instead.
	ErrFormat = errors.New("malformed time value")

	// ErrInvalidWindow is returned for windows that are empty, out of
	// range, or would cross midnight.
	ErrInvalidWindow = errors.New("invalid eligibility window")

	// ErrNetwork is returned when the backend could not be reached.
	// Always recoverable via cache fallback.
	ErrNetwork = errors.New("network failure")

	// ErrServer is returned when the backend answered with a failure.
	// Always recoverable via cache fallback.
	ErrServer = errors.New("server error")

	// ErrStorage is returned by progress stores on read/write failure.
	// Reads degrade to absent; writes are logged and swallowed.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FormatError describes a clock string that could not be parsed.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed time value %q: want HH:MM or HH:MM:SS", e.Input)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// ServerError carries the backend's status code and message.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (status %d)", e.Code)
	}
	return fmt.Sprintf("server error (status %d): %s", e.Code, e.Message)
}

func (e *ServerError) Unwrap() error { return ErrServer }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRecoverable returns true if the caller can fall back to cached state.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrStorage)
}

// IsFormat returns true if the error indicates malformed local input.
func IsFormat(err error) bool {
	return errors.Is(err, ErrFormat) || errors.Is(err, ErrInvalidWindow)
}
