// Package translate maps between the engine's wire schema and the host's
// normalized schema. The mapping is intentionally lossy where the two
// schemas diverge: thinking signatures and tool notifications have no
// wire representation, and unknown content shapes are dropped rather
// than guessed at. ToNormalized and ToExternal are not true inverses;
// they are tested for idempotence instead.
package translate

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bazelment/agentrelay/message"
	"github.com/bazelment/agentrelay/protocol"
)

// ToNormalized converts an engine message into the host schema.
//
// Tool-result messages map to the "user" role; the host's conversation
// model distinguishes only user and assistant authors, and tool results
// flow back to the engine the way user input does.
func ToNormalized(ext protocol.Message) message.Message {
	msg := message.Message{
		ID:      ext.ID,
		Created: time.Now().Unix(),
	}
	if msg.ID == "" {
		msg.ID = message.NewID()
	}

	switch ext.Role {
	case protocol.RoleAssistant:
		msg.Role = message.RoleAssistant
		msg.Content = assistantBlocks(ext)
	case protocol.RoleToolResult:
		msg.Role = message.RoleUser
		msg.Content = []message.Block{toolResponseBlock(ext)}
	default:
		msg.Role = message.RoleUser
		msg.Content = userBlocks(ext)
	}

	return msg
}

func userBlocks(ext protocol.Message) []message.Block {
	if s, ok := ext.Content.AsString(); ok {
		return []message.Block{message.TextBlock(s)}
	}

	parts, ok := ext.Content.AsParts()
	if !ok {
		return nil
	}

	var blocks []message.Block
	for _, part := range parts {
		switch p := part.(type) {
		case protocol.TextPart:
			blocks = append(blocks, message.TextBlock(p.Text))
		case protocol.ImagePart:
			blocks = append(blocks, message.ImageBlock(p.Data, p.MimeType))
		}
	}
	return blocks
}

func assistantBlocks(ext protocol.Message) []message.Block {
	parts, ok := ext.Content.AsParts()
	if !ok {
		if s, ok := ext.Content.AsString(); ok {
			return []message.Block{message.TextBlock(s)}
		}
		return nil
	}

	var blocks []message.Block
	for _, part := range parts {
		switch p := part.(type) {
		case protocol.TextPart:
			blocks = append(blocks, message.TextBlock(p.Text))
		case protocol.ThinkingPart:
			blocks = append(blocks, message.ThinkingBlock(p.Thinking))
		case protocol.ToolCallPart:
			blocks = append(blocks, message.ToolRequestBlock(p.ID, p.Name, p.Arguments))
		}
	}
	return blocks
}

func toolResponseBlock(ext protocol.Message) message.Block {
	block := message.Block{
		Type:       message.BlockTypeToolResponse,
		ToolCallID: ext.ToolCallID,
		ToolName:   ext.ToolName,
		Status:     message.ToolStatusSuccess,
	}

	raw, err := ext.Content.MarshalJSON()
	if err == nil && string(raw) != "null" {
		block.Value = json.RawMessage(raw)
	}

	if ext.IsError {
		block.Status = message.ToolStatusError
		block.ErrorText = contentText(ext.Content)
	}

	return block
}

// contentText flattens content to plain text for error reporting.
func contentText(fc protocol.FlexibleContent) string {
	if s, ok := fc.AsString(); ok {
		return s
	}
	parts, ok := fc.AsParts()
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, part := range parts {
		if p, ok := part.(protocol.TextPart); ok {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ToExternal converts a normalized message back to the engine schema.
// It is a best-effort inverse used only for context priming: thinking
// signatures are dropped (the wire has none) and content that cannot be
// sensibly reconstructed yields nil.
func ToExternal(msg message.Message) *protocol.Message {
	if len(msg.Content) == 0 {
		return nil
	}

	var ext *protocol.Message

	// A tool-response block turns the whole message back into a
	// tool-result; the normalized schema never mixes it with other blocks.
	if msg.Content[0].Type == message.BlockTypeToolResponse {
		ext = toolResultMessage(msg.Content[0])
	} else if msg.Role == message.RoleAssistant {
		ext = assistantMessage(msg)
	} else {
		ext = userMessage(msg)
	}

	if ext != nil {
		ext.ID = msg.ID
	}
	return ext
}

func userMessage(msg message.Message) *protocol.Message {
	// Plain single-text user messages round-trip as string content.
	if len(msg.Content) == 1 && msg.Content[0].Type == message.BlockTypeText {
		ext := protocol.NewUserTextMessage(msg.Content[0].Text)
		return &ext
	}

	var parts protocol.Parts
	for _, block := range msg.Content {
		switch block.Type {
		case message.BlockTypeText:
			parts = append(parts, protocol.NewTextPart(block.Text))
		case message.BlockTypeImage:
			parts = append(parts, protocol.NewImagePart(block.Data, block.MimeType))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &protocol.Message{
		Role:    protocol.RoleUser,
		Content: protocol.NewPartsContent(parts),
	}
}

func assistantMessage(msg message.Message) *protocol.Message {
	var parts protocol.Parts
	for _, block := range msg.Content {
		switch block.Type {
		case message.BlockTypeText:
			parts = append(parts, protocol.NewTextPart(block.Text))
		case message.BlockTypeThinking:
			parts = append(parts, protocol.NewThinkingPart(block.Thinking))
		case message.BlockTypeToolRequest:
			parts = append(parts, protocol.NewToolCallPart(block.ToolCallID, block.ToolName, block.Args))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &protocol.Message{
		Role:    protocol.RoleAssistant,
		Content: protocol.NewPartsContent(parts),
	}
}

func toolResultMessage(block message.Block) *protocol.Message {
	ext := protocol.Message{
		Role:       protocol.RoleToolResult,
		ToolCallID: block.ToolCallID,
		ToolName:   block.ToolName,
		IsError:    block.Status == message.ToolStatusError,
	}

	switch {
	case len(block.Value) > 0:
		ext.Content = protocol.NewRawContent(block.Value)
	case block.ErrorText != "":
		ext.Content = protocol.NewPartsContent(protocol.Parts{protocol.NewTextPart(block.ErrorText)})
	default:
		ext.Content = protocol.NewPartsContent(protocol.Parts{})
	}

	return &ext
}
