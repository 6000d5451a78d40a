// Package tokens estimates token counts for conversation accounting.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/bazelment/agentrelay/message"
)

// Counter estimates token usage with a tiktoken encoding.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter creates a Counter for the given encoding name, falling back
// to cl100k_base when the name is empty or unknown.
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Counter{enc: enc}, nil
}

// Count returns the token count for a string.
func (c *Counter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// CountConversation estimates input (user) and output (assistant) tokens
// over a conversation. Only text and thinking content is counted; tool
// payloads are structured data the tokenizer has no stable view of.
func (c *Counter) CountConversation(msgs []message.Message) (input, output int) {
	for _, msg := range msgs {
		n := 0
		for _, block := range msg.Content {
			switch block.Type {
			case message.BlockTypeText:
				n += c.Count(block.Text)
			case message.BlockTypeThinking:
				n += c.Count(block.Thinking)
			}
		}
		if msg.Role == message.RoleAssistant {
			output += n
		} else {
			input += n
		}
	}
	return input, output
}
