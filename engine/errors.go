package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrClosed is returned when an operation is attempted on a closed handle.
	ErrClosed = errors.New("engine handle closed")

	// ErrBusy is returned when a prompt is issued while another is in flight.
	ErrBusy = errors.New("prompt already in flight")
)

// UnavailableError indicates the engine collaborator could not be
// loaded or spawned. All session operations fail fast on it.
type UnavailableError struct {
	Command string
	Cause   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("engine unavailable: %q: %v", e.Command, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// ProcessError represents an error with the engine subprocess.
type ProcessError struct {
	Cause    error
	Message  string
	ExitCode int
}

func (e *ProcessError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s (exit code %d)", e.Message, e.ExitCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}
