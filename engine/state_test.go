package engine

import "testing"

func TestHandleStateManager_Transitions(t *testing.T) {
	m := newHandleStateManager()
	if m.Current() != HandleStateIdle {
		t.Fatalf("initial state = %v, want idle", m.Current())
	}

	if err := m.SetStreaming(); err != nil {
		t.Fatalf("SetStreaming from idle: %v", err)
	}
	if !m.IsStreaming() {
		t.Fatal("IsStreaming() = false while streaming")
	}

	if err := m.SetStreaming(); err != ErrBusy {
		t.Fatalf("SetStreaming while streaming = %v, want ErrBusy", err)
	}

	m.SetIdle()
	if m.Current() != HandleStateIdle {
		t.Fatalf("state = %v after SetIdle, want idle", m.Current())
	}
}

func TestHandleStateManager_ClosedIsTerminal(t *testing.T) {
	m := newHandleStateManager()
	m.SetClosed()
	if !m.IsClosed() {
		t.Fatal("IsClosed() = false after SetClosed")
	}

	if err := m.SetStreaming(); err != ErrClosed {
		t.Fatalf("SetStreaming after close = %v, want ErrClosed", err)
	}

	// SetIdle only leaves the streaming state; closed stays closed.
	m.SetIdle()
	if !m.IsClosed() {
		t.Fatal("SetIdle revived a closed handle")
	}
}

func TestHandleState_String(t *testing.T) {
	tests := []struct {
		state HandleState
		want  string
	}{
		{HandleStateIdle, "idle"},
		{HandleStateStreaming, "streaming"},
		{HandleStateClosed, "closed"},
		{HandleState(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Fatalf("String(%d) = %q, want %q", tc.state, got, tc.want)
		}
	}
}
