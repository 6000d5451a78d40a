package accum

import (
	"encoding/json"
	"testing"

	"github.com/bazelment/agentrelay/message"
	"github.com/bazelment/agentrelay/protocol"
)

func assistantEvent(typ protocol.EventType, id, text string) protocol.Event {
	return protocol.Event{
		Type: typ,
		Message: &protocol.Message{
			ID:   id,
			Role: protocol.RoleAssistant,
			Content: protocol.NewPartsContent(protocol.Parts{
				protocol.NewTextPart(text),
			}),
		},
	}
}

func TestHandleEvent_UpdateReplacesNotAppends(t *testing.T) {
	var snapshots []string
	acc := New(Callbacks{
		OnMessage: func(msg message.Message, final bool) {
			if !final {
				snapshots = append(snapshots, msg.Text())
			}
		},
	})

	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageStart, "m1", ""))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageUpdate, "m1", "He"))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageUpdate, "m1", "Hello"))

	cur, ok := acc.Current()
	if !ok {
		t.Fatal("no in-progress message")
	}
	if got := cur.Text(); got != "Hello" {
		t.Fatalf("current text = %q, want %q (latest snapshot wins)", got, "Hello")
	}
	want := []string{"", "He", "Hello"}
	if len(snapshots) != len(want) {
		t.Fatalf("got %d snapshots, want %d", len(snapshots), len(want))
	}
	for i := range want {
		if snapshots[i] != want[i] {
			t.Fatalf("snapshot[%d] = %q, want %q", i, snapshots[i], want[i])
		}
	}
}

func TestHandleEvent_FullCycle(t *testing.T) {
	var finals []string
	completed := false
	acc := New(Callbacks{
		OnMessage: func(msg message.Message, final bool) {
			if final {
				finals = append(finals, msg.Text())
			}
		},
		OnComplete: func() { completed = true },
	})

	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	if acc.State() != StateStreaming {
		t.Fatalf("state = %v, want streaming", acc.State())
	}

	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageStart, "m1", ""))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageUpdate, "m1", "He"))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageUpdate, "m1", "Hello"))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageEnd, "m1", "Hello"))
	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentEnd})

	if !completed {
		t.Fatal("OnComplete not fired")
	}
	if !acc.IsComplete() {
		t.Fatal("IsComplete() = false after agent_end")
	}
	msgs := acc.Messages()
	if len(msgs) != 1 {
		t.Fatalf("buffered %d messages, want 1", len(msgs))
	}
	if got := msgs[0].Text(); got != "Hello" {
		t.Fatalf("buffered text = %q, want Hello", got)
	}
	if len(finals) != 1 || finals[0] != "Hello" {
		t.Fatalf("finals = %v, want [Hello]", finals)
	}
	if _, ok := acc.Current(); ok {
		t.Fatal("in-progress message survived message_end")
	}
}

// Buffer order follows message_end arrival, not message_start order.
func TestHandleEvent_BufferOrderIsEndOrder(t *testing.T) {
	acc := New(Callbacks{})

	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageStart, "a", "first started"))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageStart, "b", "second started"))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageEnd, "b", "second started"))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageEnd, "a", "first started"))

	msgs := acc.Messages()
	if len(msgs) != 2 {
		t.Fatalf("buffered %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != "b" || msgs[1].ID != "a" {
		t.Fatalf("buffer order = [%s, %s], want [b, a]", msgs[0].ID, msgs[1].ID)
	}
}

func TestHandleEvent_DuplicateEndReplacesInPlace(t *testing.T) {
	finals := 0
	acc := New(Callbacks{
		OnMessage: func(msg message.Message, final bool) {
			if final {
				finals++
			}
		},
	})

	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageEnd, "m1", "v1"))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageEnd, "m2", "other"))
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageEnd, "m1", "v2"))

	msgs := acc.Messages()
	if len(msgs) != 2 {
		t.Fatalf("buffered %d messages, want 2 (duplicate replaced in place)", len(msgs))
	}
	if msgs[0].ID != "m1" || msgs[0].Text() != "v2" {
		t.Fatalf("msgs[0] = %s %q, want m1 at original position with v2", msgs[0].ID, msgs[0].Text())
	}
	if msgs[1].ID != "m2" {
		t.Fatalf("msgs[1].ID = %s, want m2", msgs[1].ID)
	}
	if finals != 3 {
		t.Fatalf("final emissions = %d, want 3", finals)
	}
}

// turn_end commits its carried message but does not end the stream.
func TestHandleEvent_TurnEndIsNotStreamEnd(t *testing.T) {
	completed := false
	acc := New(Callbacks{OnComplete: func() { completed = true }})

	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(assistantEvent(protocol.EventTypeTurnEnd, "m1", "turn one"))

	if completed {
		t.Fatal("OnComplete fired on turn_end")
	}
	if acc.State() != StateStreaming {
		t.Fatalf("state = %v, want streaming after turn_end", acc.State())
	}
	if msgs := acc.Messages(); len(msgs) != 1 || msgs[0].Text() != "turn one" {
		t.Fatalf("messages = %v, want the turn's message committed", msgs)
	}
}

func TestHandleEvent_EndWithoutStartCommitsDirectly(t *testing.T) {
	acc := New(Callbacks{})
	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageEnd, "m1", "whole message"))

	if msgs := acc.Messages(); len(msgs) != 1 || msgs[0].Text() != "whole message" {
		t.Fatalf("messages = %v, want single committed message", msgs)
	}
}

func TestHandleEvent_EndWithoutMessageFinalizesCurrent(t *testing.T) {
	acc := New(Callbacks{})
	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageUpdate, "m1", "partial"))
	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeMessageEnd})

	msgs := acc.Messages()
	if len(msgs) != 1 || msgs[0].Text() != "partial" {
		t.Fatalf("messages = %v, want finalized snapshot", msgs)
	}
	if _, ok := acc.Current(); ok {
		t.Fatal("current survived bare message_end")
	}
}

// Id-less engines stream one message at a time; identity assigned at the
// first snapshot stays stable through updates and the final commit.
func TestHandleEvent_StableIDWithoutEngineIDs(t *testing.T) {
	acc := New(Callbacks{})
	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageStart, "", "a"))

	first, ok := acc.Current()
	if !ok || first.ID == "" {
		t.Fatal("no id assigned at message_start")
	}

	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageUpdate, "", "ab"))
	cur, _ := acc.Current()
	if cur.ID != first.ID {
		t.Fatalf("id changed across updates: %q -> %q", first.ID, cur.ID)
	}

	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageEnd, "", "ab"))
	msgs := acc.Messages()
	if len(msgs) != 1 || msgs[0].ID != first.ID {
		t.Fatalf("committed id = %v, want %q", msgs, first.ID)
	}
}

func TestHandleEvent_ToolNotifications(t *testing.T) {
	var notes []message.ToolNotification
	acc := New(Callbacks{
		OnNotification: func(n message.ToolNotification) { notes = append(notes, n) },
	})

	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(protocol.Event{
		Type:       protocol.EventTypeToolExecutionStart,
		ToolCallID: "tc1",
		ToolName:   "bash",
		Args:       map[string]interface{}{"command": "ls"},
	})
	acc.HandleEvent(protocol.Event{
		Type:          protocol.EventTypeToolExecutionUpdate,
		ToolCallID:    "tc1",
		ToolName:      "bash",
		PartialResult: json.RawMessage(`{"output":"fi"}`),
	})
	acc.HandleEvent(protocol.Event{
		Type:       protocol.EventTypeToolExecutionEnd,
		ToolCallID: "tc1",
		ToolName:   "bash",
		Result:     json.RawMessage(`{"output":"file.txt"}`),
	})

	if len(notes) != 3 {
		t.Fatalf("got %d notifications, want 3", len(notes))
	}
	wantPhases := []message.NotificationPhase{
		message.PhaseStart, message.PhaseProgress, message.PhaseEnd,
	}
	for i, want := range wantPhases {
		if notes[i].Phase != want {
			t.Fatalf("notes[%d].Phase = %q, want %q", i, notes[i].Phase, want)
		}
		if notes[i].RequestID != "tc1" {
			t.Fatalf("notes[%d].RequestID = %q, want tc1", i, notes[i].RequestID)
		}
	}
	if notes[0].Args["command"] != "ls" {
		t.Fatalf("start args = %v, want command ls", notes[0].Args)
	}
	if string(notes[2].Result) != `{"output":"file.txt"}` {
		t.Fatalf("end result = %s", notes[2].Result)
	}

	// Notifications never enter the message buffer.
	if msgs := acc.Messages(); len(msgs) != 0 {
		t.Fatalf("messages = %v, want empty buffer", msgs)
	}
}

func TestHandleEvent_UnknownTypeIgnored(t *testing.T) {
	acc := New(Callbacks{})
	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(protocol.Event{Type: "future_event_kind"})

	if acc.State() != StateStreaming {
		t.Fatalf("state = %v, want streaming (unknown types ignored)", acc.State())
	}
	if msgs := acc.Messages(); len(msgs) != 0 {
		t.Fatalf("messages = %v, want empty", msgs)
	}
}

func TestHandleEvent_AgentStartClearsPriorStream(t *testing.T) {
	acc := New(Callbacks{})
	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageEnd, "m1", "old"))
	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentEnd})

	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	if acc.State() != StateStreaming {
		t.Fatalf("state = %v, want streaming", acc.State())
	}
	if msgs := acc.Messages(); len(msgs) != 0 {
		t.Fatalf("messages = %v, want cleared on new stream", msgs)
	}
}

func TestReset(t *testing.T) {
	acc := New(Callbacks{})
	acc.HandleEvent(protocol.Event{Type: protocol.EventTypeAgentStart})
	acc.HandleEvent(assistantEvent(protocol.EventTypeMessageUpdate, "m1", "x"))
	acc.Reset()

	if acc.State() != StateIdle {
		t.Fatalf("state = %v, want idle after reset", acc.State())
	}
	if _, ok := acc.Current(); ok {
		t.Fatal("current survived reset")
	}
	if msgs := acc.Messages(); len(msgs) != 0 {
		t.Fatalf("messages = %v, want empty after reset", msgs)
	}
}
