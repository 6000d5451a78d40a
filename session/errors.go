package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoActiveSession is returned when an operation requires a live
	// engine handle and none is held.
	ErrNoActiveSession = errors.New("no active session")

	// ErrPromptInFlight is returned when a prompt is issued while another
	// prompt's stream has not completed. Concurrent prompts against one
	// handle are not supported; callers must wait for completion.
	ErrPromptInFlight = errors.New("prompt already in flight")

	// ErrSessionNotFound is returned when a session id is missing from
	// every backend tried.
	ErrSessionNotFound = errors.New("session not found in any backend")
)

// PersistenceError reports a failed save against a backend. Remote
// persistence errors are logged and swallowed — the local/in-memory copy
// stays authoritative and no retry is performed.
type PersistenceError struct {
	Backend string
	Op      string
	Cause   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s persistence failed (%s): %v", e.Backend, e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
