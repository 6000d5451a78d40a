package engine

import (
	"context"
	"sync"

	"github.com/bazelment/agentrelay/protocol"
)

// ScriptedEngine is an in-memory Engine for tests. Each prompt replays
// the events returned by OnPrompt synchronously on the subscriber before
// Prompt returns, making event-driven tests deterministic.
type ScriptedEngine struct {
	// OnPrompt returns the events to emit for a prompt and the error the
	// prompt call itself should return (after the events are delivered).
	OnPrompt func(text string) ([]protocol.Event, error)

	// CreateErr, when set, makes Create fail.
	CreateErr error

	mu      sync.Mutex
	handles []*ScriptedHandle
}

// Create returns a new scripted handle.
func (e *ScriptedEngine) Create(ctx context.Context, opts Options) (Handle, error) {
	if e.CreateErr != nil {
		return nil, e.CreateErr
	}
	h := &ScriptedHandle{eng: e, opts: opts}
	e.mu.Lock()
	e.handles = append(e.handles, h)
	e.mu.Unlock()
	return h, nil
}

// Handles returns every handle created so far.
func (e *ScriptedEngine) Handles() []*ScriptedHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*ScriptedHandle, len(e.handles))
	copy(out, e.handles)
	return out
}

// ScriptedHandle is the Handle produced by ScriptedEngine.
type ScriptedHandle struct {
	eng  *ScriptedEngine
	opts Options

	mu        sync.Mutex
	sub       *subscription
	streaming bool
	closed    bool

	// Recorded interactions, readable by tests.
	Prompts []string
	Primed  [][]protocol.Message
	Aborted bool
	Closed  bool
}

// WorkingDirectory returns the directory the handle was created for.
func (h *ScriptedHandle) WorkingDirectory() string {
	return h.opts.WorkingDirectory
}

// Subscribe registers the event listener.
func (h *ScriptedHandle) Subscribe(fn func(protocol.Event)) func() {
	sub := &subscription{fn: fn}
	h.mu.Lock()
	h.sub = sub
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		if h.sub == sub {
			h.sub = nil
		}
		h.mu.Unlock()
	}
}

// Prompt replays the scripted events and returns the scripted error.
func (h *ScriptedHandle) Prompt(ctx context.Context, text string) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	if h.streaming {
		h.mu.Unlock()
		return ErrBusy
	}
	h.streaming = true
	h.Prompts = append(h.Prompts, text)
	h.mu.Unlock()

	var events []protocol.Event
	var err error
	if h.eng.OnPrompt != nil {
		events, err = h.eng.OnPrompt(text)
	}

	for _, ev := range events {
		h.Emit(ev)
	}

	h.mu.Lock()
	h.streaming = false
	h.mu.Unlock()
	return err
}

// Emit delivers one event to the current subscriber.
func (h *ScriptedHandle) Emit(ev protocol.Event) {
	h.mu.Lock()
	sub := h.sub
	h.mu.Unlock()
	if sub != nil {
		sub.fn(ev)
	}
}

// Abort records the cancellation request.
func (h *ScriptedHandle) Abort() {
	h.mu.Lock()
	h.Aborted = true
	h.mu.Unlock()
}

// IsStreaming reports whether a scripted prompt is replaying.
func (h *ScriptedHandle) IsStreaming() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.streaming
}

// ReplaceMessages records the priming call.
func (h *ScriptedHandle) ReplaceMessages(ctx context.Context, msgs []protocol.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.Primed = append(h.Primed, msgs)
	return nil
}

// Close marks the handle closed.
func (h *ScriptedHandle) Close() error {
	h.mu.Lock()
	h.closed = true
	h.Closed = true
	h.mu.Unlock()
	return nil
}
