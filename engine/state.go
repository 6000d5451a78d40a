package engine

import "sync"

// HandleState represents the state of an engine handle.
type HandleState int

const (
	HandleStateIdle HandleState = iota
	HandleStateStreaming
	HandleStateClosed
)

func (s HandleState) String() string {
	switch s {
	case HandleStateIdle:
		return "idle"
	case HandleStateStreaming:
		return "streaming"
	case HandleStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// handleStateManager manages thread-safe handle state transitions.
type handleStateManager struct {
	mu    sync.RWMutex
	state HandleState
}

func newHandleStateManager() *handleStateManager {
	return &handleStateManager{state: HandleStateIdle}
}

func (m *handleStateManager) Current() HandleState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *handleStateManager) SetStreaming() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case HandleStateClosed:
		return ErrClosed
	case HandleStateStreaming:
		return ErrBusy
	}
	m.state = HandleStateStreaming
	return nil
}

func (m *handleStateManager) SetIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == HandleStateStreaming {
		m.state = HandleStateIdle
	}
}

func (m *handleStateManager) SetClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = HandleStateClosed
}

func (m *handleStateManager) IsStreaming() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == HandleStateStreaming
}

func (m *handleStateManager) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == HandleStateClosed
}
