// Package store persists session records. Two interchangeable backends
// exist: a local JSON-file store and a remote collaborator service.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/bazelment/agentrelay/message"
)

// ErrNotFound is returned when a session record does not exist in a
// backend.
var ErrNotFound = errors.New("session record not found")

// Record is the persisted unit of conversation state and metadata.
type Record struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	WorkingDirectory string            `json:"working_directory"`
	Conversation     []message.Message `json:"conversation"`
	MessageCount     int               `json:"message_count"`
	InputTokens      int               `json:"input_tokens"`
	OutputTokens     int               `json:"output_tokens"`
	Backend          string            `json:"backend,omitempty"`
}

// Touch updates derived fields before a save. UpdatedAt never moves
// backwards.
func (r *Record) Touch() {
	now := time.Now()
	if now.After(r.UpdatedAt) {
		r.UpdatedAt = now
	}
	r.MessageCount = len(r.Conversation)
}

// Store is the local persistence interface, keyed by session id.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, id string) error
}
