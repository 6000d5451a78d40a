// Package protocol defines the wire schema of the external agent engine:
// the messages it exchanges and the event stream it emits. Parsing is
// forward-compatible — unknown event types and content part types decode
// to explicit "unknown" values instead of errors.
package protocol

import (
	"encoding/json"
)

// Role identifies the message variant on the wire.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "toolResult"
)

// Message is one message in the engine's schema. The set of meaningful
// fields depends on Role: user messages carry Content (string or parts),
// assistant messages carry Content parts, tool-result messages carry
// ToolCallID, ToolName, Content parts and IsError.
type Message struct {
	ID         string          `json:"id,omitempty"`
	Role       Role            `json:"role"`
	Content    FlexibleContent `json:"content"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

// FlexibleContent is message content that can be either a plain string or
// an array of content parts.
type FlexibleContent struct {
	raw json.RawMessage
}

// NewStringContent builds content from a plain string.
func NewStringContent(s string) FlexibleContent {
	data, _ := json.Marshal(s)
	return FlexibleContent{raw: data}
}

// NewRawContent builds content from pre-encoded JSON.
func NewRawContent(raw json.RawMessage) FlexibleContent {
	return FlexibleContent{raw: raw}
}

// NewPartsContent builds content from content parts.
func NewPartsContent(parts Parts) FlexibleContent {
	data, _ := json.Marshal(parts)
	return FlexibleContent{raw: data}
}

// UnmarshalJSON implements json.Unmarshaler.
func (fc *FlexibleContent) UnmarshalJSON(data []byte) error {
	fc.raw = data
	return nil
}

// MarshalJSON implements json.Marshaler.
func (fc FlexibleContent) MarshalJSON() ([]byte, error) {
	if fc.raw == nil {
		return []byte("null"), nil
	}
	return fc.raw, nil
}

// IsString returns true if the content is a plain string.
func (fc FlexibleContent) IsString() bool {
	if len(fc.raw) == 0 {
		return false
	}
	return fc.raw[0] == '"'
}

// AsString returns the content as a string (if it is one).
func (fc FlexibleContent) AsString() (string, bool) {
	if !fc.IsString() {
		return "", false
	}
	var s string
	if err := json.Unmarshal(fc.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// AsParts returns the content as content parts (if it is an array).
// Unknown part types are skipped during decode.
func (fc FlexibleContent) AsParts() (Parts, bool) {
	if fc.IsString() || len(fc.raw) == 0 {
		return nil, false
	}
	var parts Parts
	if err := json.Unmarshal(fc.raw, &parts); err != nil {
		return nil, false
	}
	return parts, true
}

// NewUserTextMessage constructs a user message with plain string content.
func NewUserTextMessage(text string) Message {
	return Message{
		Role:    RoleUser,
		Content: NewStringContent(text),
	}
}
