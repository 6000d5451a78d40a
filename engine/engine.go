// Package engine defines the external agent engine collaborator and a
// subprocess-backed implementation of it. The engine performs the actual
// reasoning and tool orchestration; this package only manages handles to
// it and relays its event stream.
package engine

import (
	"context"

	"github.com/bazelment/agentrelay/protocol"
)

// Options configure a new engine handle.
type Options struct {
	// WorkingDirectory scopes the engine instance to a directory.
	WorkingDirectory string
}

// Engine acquires live handles to the external agent engine.
type Engine interface {
	Create(ctx context.Context, opts Options) (Handle, error)
}

// Handle is a live, subscribable engine instance. Exactly one handle is
// live per process; event delivery is push-based with a single
// subscriber at a time.
type Handle interface {
	// Subscribe registers the event listener and returns its unsubscribe
	// function. Callers must unsubscribe a prior listener before
	// registering a new one to avoid duplicate delivery.
	Subscribe(fn func(protocol.Event)) (unsubscribe func())

	// Prompt sends a user prompt and blocks until the engine reports
	// turn completion or the call fails. Stream completion (agent_end)
	// arrives independently on the event stream and remains the
	// authoritative signal for final message state.
	Prompt(ctx context.Context, text string) error

	// Abort requests cooperative cancellation of the in-flight turn.
	// In-flight tool execution is not guaranteed to terminate.
	Abort()

	// IsStreaming reports whether a prompt is currently in flight.
	IsStreaming() bool

	// ReplaceMessages primes the engine with prior conversation history.
	ReplaceMessages(ctx context.Context, msgs []protocol.Message) error

	// Close tears down the handle and releases its resources.
	Close() error
}
