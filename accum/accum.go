// Package accum converts the engine's raw event stream into normalized
// messages and out-of-band tool notifications.
package accum

import (
	"sync"

	"github.com/bazelment/agentrelay/message"
	"github.com/bazelment/agentrelay/protocol"
	"github.com/bazelment/agentrelay/translate"
)

// State represents the accumulator lifecycle.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Callbacks receive accumulator output as events arrive.
// All callbacks are optional and are invoked on the event delivery
// goroutine, in emission order.
type Callbacks struct {
	// OnMessage receives message snapshots: the in-progress message after
	// every start/update (each snapshot replaces the previous one, same
	// id), and the final message on commit.
	OnMessage func(msg message.Message, final bool)

	// OnNotification receives tool execution progress signals.
	OnNotification func(n message.ToolNotification)

	// OnComplete fires once when the stream ends (agent_end).
	OnComplete func()
}

// Accumulator is the state machine consuming raw engine events.
// Messages are committed to the buffer in message_end arrival order;
// a duplicate end for an already-buffered id replaces it in place.
type Accumulator struct {
	cb      Callbacks
	mu      sync.Mutex
	state   State
	current *message.Message
	buffer  []message.Message
	index   map[string]int // message id -> buffer position
}

// New creates an idle Accumulator.
func New(cb Callbacks) *Accumulator {
	return &Accumulator{
		cb:    cb,
		index: make(map[string]int),
	}
}

// Reset returns the accumulator to Idle and discards all buffered state.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLocked()
	a.state = StateIdle
}

// State returns the current state.
func (a *Accumulator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// IsComplete reports whether the stream has ended.
func (a *Accumulator) IsComplete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == StateComplete
}

// Messages returns a copy of the finalized message buffer.
func (a *Accumulator) Messages() []message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]message.Message, len(a.buffer))
	copy(out, a.buffer)
	return out
}

// Current returns the in-progress message, if any.
func (a *Accumulator) Current() (message.Message, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return message.Message{}, false
	}
	return *a.current, true
}

// HandleEvent consumes one raw event. Events with unrecognized types are
// ignored without a state change, keeping the stream alive across
// protocol additions.
func (a *Accumulator) HandleEvent(ev protocol.Event) {
	switch ev.Type {
	case protocol.EventTypeAgentStart:
		a.mu.Lock()
		a.clearLocked()
		a.state = StateStreaming
		a.mu.Unlock()

	case protocol.EventTypeAgentEnd:
		a.mu.Lock()
		a.state = StateComplete
		a.mu.Unlock()
		if a.cb.OnComplete != nil {
			a.cb.OnComplete()
		}

	case protocol.EventTypeMessageStart, protocol.EventTypeMessageUpdate:
		a.handleSnapshot(ev)

	case protocol.EventTypeMessageEnd:
		a.handleEnd(ev)

	case protocol.EventTypeTurnEnd:
		// A turn boundary is not a stream boundary: the engine may keep
		// orchestrating further turns, so no state transition here.
		if ev.Message != nil {
			a.commit(translate.ToNormalized(*ev.Message))
		}

	case protocol.EventTypeToolExecutionStart:
		a.notify(message.ToolNotification{
			RequestID: ev.ToolCallID,
			Phase:     message.PhaseStart,
			ToolName:  ev.ToolName,
			Args:      ev.Args,
		})

	case protocol.EventTypeToolExecutionUpdate:
		a.notify(message.ToolNotification{
			RequestID: ev.ToolCallID,
			Phase:     message.PhaseProgress,
			ToolName:  ev.ToolName,
			Progress:  ev.PartialResult,
		})

	case protocol.EventTypeToolExecutionEnd:
		a.notify(message.ToolNotification{
			RequestID: ev.ToolCallID,
			Phase:     message.PhaseEnd,
			ToolName:  ev.ToolName,
			Result:    ev.Result,
			IsError:   ev.IsError,
		})
	}
}

// handleSnapshot replaces the in-progress message with the latest
// translated snapshot. Updates replace, never append: consumers see
// monotonic growth of one message, not concatenation of deltas.
func (a *Accumulator) handleSnapshot(ev protocol.Event) {
	if ev.Message == nil {
		return
	}
	msg := translate.ToNormalized(*ev.Message)

	a.mu.Lock()
	if ev.Message.ID == "" && a.current != nil {
		// Id-less engines stream one message at a time; keep the identity
		// assigned at message_start stable across its updates.
		msg.ID = a.current.ID
		msg.Created = a.current.Created
	}
	a.current = &msg
	a.mu.Unlock()

	if a.cb.OnMessage != nil {
		a.cb.OnMessage(msg, false)
	}
}

// handleEnd commits the finalized message and clears the in-progress one.
func (a *Accumulator) handleEnd(ev protocol.Event) {
	var msg message.Message
	switch {
	case ev.Message != nil:
		msg = translate.ToNormalized(*ev.Message)
		a.mu.Lock()
		if ev.Message.ID == "" && a.current != nil {
			msg.ID = a.current.ID
			msg.Created = a.current.Created
		}
		a.current = nil
		a.mu.Unlock()
	default:
		// End without a carried message finalizes whatever was streaming.
		a.mu.Lock()
		if a.current == nil {
			a.mu.Unlock()
			return
		}
		msg = *a.current
		a.current = nil
		a.mu.Unlock()
	}

	a.commit(msg)
}

// commit places a finalized message in the buffer. The buffer order is
// the commit order; a message already present (same id) is replaced in
// place, making duplicate end events idempotent.
func (a *Accumulator) commit(msg message.Message) {
	a.mu.Lock()
	if pos, ok := a.index[msg.ID]; ok {
		a.buffer[pos] = msg
	} else {
		a.index[msg.ID] = len(a.buffer)
		a.buffer = append(a.buffer, msg)
	}
	a.mu.Unlock()

	if a.cb.OnMessage != nil {
		a.cb.OnMessage(msg, true)
	}
}

func (a *Accumulator) notify(n message.ToolNotification) {
	if a.cb.OnNotification != nil {
		a.cb.OnNotification(n)
	}
}

func (a *Accumulator) clearLocked() {
	a.current = nil
	a.buffer = nil
	a.index = make(map[string]int)
}
