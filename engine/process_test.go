package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/agentrelay/protocol"
)

func TestCLIEngine_CreateMissingBinary(t *testing.T) {
	eng := NewCLIEngine("agentrelay-test-binary-that-does-not-exist")
	_, err := eng.Create(context.Background(), Options{})
	require.Error(t, err)

	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "agentrelay-test-binary-that-does-not-exist", unavail.Command)
}

func TestCLIEngine_CreateNonExecutable(t *testing.T) {
	// A directory exists but cannot be executed: a start failure that is
	// not the collaborator being missing.
	eng := NewCLIEngine(t.TempDir())
	_, err := eng.Create(context.Background(), Options{})
	require.Error(t, err)

	var perr *ProcessError
	require.ErrorAs(t, err, &perr)
	var unavail *UnavailableError
	assert.False(t, errors.As(err, &unavail), "non-ENOENT start failure reported as unavailable")
}

func TestProcHandle_StaleUnsubscribeKeepsNewListener(t *testing.T) {
	h := &procHandle{
		state:  newHandleStateManager(),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	var gotA, gotB int
	unsubA := h.Subscribe(func(protocol.Event) { gotA++ })
	h.Subscribe(func(protocol.Event) { gotB++ })

	// A's unsubscribe is stale; it must not drop B.
	unsubA()
	h.deliver(protocol.Event{Type: protocol.EventTypeAgentStart})

	assert.Equal(t, 0, gotA)
	assert.Equal(t, 1, gotB)
}

func TestScriptedHandle_StaleUnsubscribeKeepsNewListener(t *testing.T) {
	h := &ScriptedHandle{}

	var gotA, gotB int
	unsubA := h.Subscribe(func(protocol.Event) { gotA++ })
	h.Subscribe(func(protocol.Event) { gotB++ })

	unsubA()
	h.Emit(protocol.Event{Type: protocol.EventTypeAgentStart})

	assert.Equal(t, 0, gotA)
	assert.Equal(t, 1, gotB)
}
