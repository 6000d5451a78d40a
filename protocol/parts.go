package protocol

import (
	"encoding/json"
	"fmt"
)

// PartType identifies the kind of content part.
type PartType string

const (
	PartTypeText     PartType = "text"
	PartTypeThinking PartType = "thinking"
	PartTypeToolCall PartType = "toolCall"
	PartTypeImage    PartType = "image"
)

// Part is the interface for all content parts.
type Part interface {
	PartKind() PartType
}

// TextPart is plain text content.
type TextPart struct {
	Type PartType `json:"type"`
	Text string   `json:"text"`
}

// PartKind returns the part type.
func (p TextPart) PartKind() PartType { return PartTypeText }

// NewTextPart constructs a text part.
func NewTextPart(text string) TextPart {
	return TextPart{Type: PartTypeText, Text: text}
}

// ThinkingPart is extended reasoning content. The engine's schema carries
// no signature alongside thinking content.
type ThinkingPart struct {
	Type     PartType `json:"type"`
	Thinking string   `json:"thinking"`
}

// PartKind returns the part type.
func (p ThinkingPart) PartKind() PartType { return PartTypeThinking }

// NewThinkingPart constructs a thinking part.
func NewThinkingPart(thinking string) ThinkingPart {
	return ThinkingPart{Type: PartTypeThinking, Thinking: thinking}
}

// ToolCallPart is a tool invocation requested by the assistant.
type ToolCallPart struct {
	Type      PartType               `json:"type"`
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// PartKind returns the part type.
func (p ToolCallPart) PartKind() PartType { return PartTypeToolCall }

// NewToolCallPart constructs a tool call part.
func NewToolCallPart(id, name string, args map[string]interface{}) ToolCallPart {
	return ToolCallPart{Type: PartTypeToolCall, ID: id, Name: name, Arguments: args}
}

// ImagePart is inline image content.
type ImagePart struct {
	Type     PartType `json:"type"`
	Data     string   `json:"data"`
	MimeType string   `json:"mimeType"`
}

// PartKind returns the part type.
func (p ImagePart) PartKind() PartType { return PartTypeImage }

// NewImagePart constructs an image part.
func NewImagePart(data, mimeType string) ImagePart {
	return ImagePart{Type: PartTypeImage, Data: data, MimeType: mimeType}
}

// Parts is a list of content parts with type-discriminated decoding.
type Parts []Part

// UnmarshalJSON decodes a JSON array of parts, skipping unknown types so
// new protocol additions don't break decoding.
func (ps *Parts) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("unmarshal content parts: %w", err)
	}

	parts := make(Parts, 0, len(raws))
	for _, raw := range raws {
		part, err := UnmarshalPart(raw)
		if err != nil {
			return err
		}
		if part == nil {
			continue
		}
		parts = append(parts, part)
	}
	*ps = parts
	return nil
}

// UnmarshalPart decodes a single content part. Unknown types return
// (nil, nil).
func UnmarshalPart(raw json.RawMessage) (Part, error) {
	var head struct {
		Type PartType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("unmarshal content part type: %w", err)
	}

	switch head.Type {
	case PartTypeText:
		var p TextPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal text part: %w", err)
		}
		return p, nil
	case PartTypeThinking:
		var p ThinkingPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal thinking part: %w", err)
		}
		return p, nil
	case PartTypeToolCall:
		var p ToolCallPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal tool call part: %w", err)
		}
		return p, nil
	case PartTypeImage:
		var p ImagePart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal image part: %w", err)
		}
		return p, nil
	default:
		return nil, nil
	}
}
