package protocol

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates between engine event kinds.
type EventType string

const (
	EventTypeAgentStart          EventType = "agent_start"
	EventTypeAgentEnd            EventType = "agent_end"
	EventTypeMessageStart        EventType = "message_start"
	EventTypeMessageUpdate       EventType = "message_update"
	EventTypeMessageEnd          EventType = "message_end"
	EventTypeTurnEnd             EventType = "turn_end"
	EventTypeToolExecutionStart  EventType = "tool_execution_start"
	EventTypeToolExecutionUpdate EventType = "tool_execution_update"
	EventTypeToolExecutionEnd    EventType = "tool_execution_end"
)

// Event is one raw event from the engine stream. It is a tagged union
// keyed by Type; which optional fields are populated depends on the type.
// Types outside the known set are preserved verbatim so consumers can
// ignore them explicitly.
type Event struct {
	Type          EventType              `json:"type"`
	Message       *Message               `json:"message,omitempty"`
	ToolCallID    string                 `json:"toolCallId,omitempty"`
	ToolName      string                 `json:"toolName,omitempty"`
	Args          map[string]interface{} `json:"args,omitempty"`
	Result        json.RawMessage        `json:"result,omitempty"`
	PartialResult json.RawMessage        `json:"partialResult,omitempty"`
	IsError       bool                   `json:"isError,omitempty"`
}

// Known reports whether the event type is part of the understood protocol.
func (e Event) Known() bool {
	switch e.Type {
	case EventTypeAgentStart, EventTypeAgentEnd,
		EventTypeMessageStart, EventTypeMessageUpdate, EventTypeMessageEnd,
		EventTypeTurnEnd,
		EventTypeToolExecutionStart, EventTypeToolExecutionUpdate, EventTypeToolExecutionEnd:
		return true
	}
	return false
}

// ParseEvent decodes a single JSON event line. Malformed JSON is an
// error; an event with an unrecognized type is not (Known() reports it).
func ParseEvent(line []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return Event{}, fmt.Errorf("parse engine event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("parse engine event: missing type")
	}
	return ev, nil
}
