// Package message defines the host's normalized conversation schema,
// independent of the external engine's wire format.
package message

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a normalized message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType identifies the kind of content block.
type BlockType string

const (
	BlockTypeText         BlockType = "text"
	BlockTypeThinking     BlockType = "thinking"
	BlockTypeToolRequest  BlockType = "tool_request"
	BlockTypeToolResponse BlockType = "tool_response"
	BlockTypeImage        BlockType = "image"
)

// ToolStatus is the outcome of a tool invocation in a tool-response block.
type ToolStatus string

const (
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// Block is one typed unit of message content.
type Block struct {
	Type BlockType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// thinking. Signature is always empty: the engine's protocol carries
	// no thinking signatures, the field exists for schema stability.
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	// tool_request / tool_response
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	ToolName   string                 `json:"tool_name,omitempty"`
	Args       map[string]interface{} `json:"args,omitempty"`
	Status     ToolStatus             `json:"status,omitempty"`
	Value      json.RawMessage        `json:"value,omitempty"`
	ErrorText  string                 `json:"error_text,omitempty"`

	// image
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// TextBlock constructs a text block.
func TextBlock(text string) Block {
	return Block{Type: BlockTypeText, Text: text}
}

// ThinkingBlock constructs a thinking block.
func ThinkingBlock(thinking string) Block {
	return Block{Type: BlockTypeThinking, Thinking: thinking}
}

// ToolRequestBlock constructs a tool request block.
func ToolRequestBlock(callID, toolName string, args map[string]interface{}) Block {
	return Block{Type: BlockTypeToolRequest, ToolCallID: callID, ToolName: toolName, Args: args}
}

// ImageBlock constructs an image block.
func ImageBlock(data, mimeType string) Block {
	return Block{Type: BlockTypeImage, Data: data, MimeType: mimeType}
}

// Message is the host's stable message representation.
type Message struct {
	ID      string  `json:"id"`
	Role    Role    `json:"role"`
	Created int64   `json:"created"`
	Content []Block `json:"content"`
	Hidden  bool    `json:"hidden,omitempty"`
}

// NewUserText constructs a user message holding a single text block.
func NewUserText(text string) Message {
	return Message{
		ID:      NewID(),
		Role:    RoleUser,
		Created: time.Now().Unix(),
		Content: []Block{TextBlock(text)},
	}
}

// Text returns the concatenated text block content of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockTypeText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// NotificationPhase identifies where a tool invocation is in its lifecycle.
type NotificationPhase string

const (
	PhaseStart    NotificationPhase = "start"
	PhaseProgress NotificationPhase = "progress"
	PhaseEnd      NotificationPhase = "end"
)

// ToolNotification is an ephemeral progress signal about one tool
// invocation. Notifications are delivered out of band and never enter
// the persisted conversation.
type ToolNotification struct {
	RequestID string                 `json:"request_id"`
	Phase     NotificationPhase      `json:"phase"`
	ToolName  string                 `json:"tool_name"`
	Args      map[string]interface{} `json:"args,omitempty"`
	Progress  json.RawMessage        `json:"progress,omitempty"`
	Result    json.RawMessage        `json:"result,omitempty"`
	IsError   bool                   `json:"is_error,omitempty"`
}

// NewID generates a short random token, unique enough within one process
// lifetime. Used for messages and blocks lacking a native identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
