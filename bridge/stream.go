// Package bridge exposes a session manager to a host process as a single
// ordered stream of items, plus an NDJSON command protocol over stdio.
package bridge

import (
	"log/slog"
	"sync"

	"github.com/bazelment/agentrelay/message"
	"github.com/bazelment/agentrelay/store"
)

// ItemType discriminates the frames emitted to the host.
type ItemType string

const (
	ItemTypeMessage      ItemType = "message"
	ItemTypeNotification ItemType = "notification"
	ItemTypeCompleted    ItemType = "completed"
	ItemTypeError        ItemType = "error"
	ItemTypeResult       ItemType = "result"
)

// Item is one frame on the host stream. Exactly one payload field is set
// according to Type; Result frames additionally carry the Op they answer.
type Item struct {
	Type         ItemType                  `json:"type"`
	Op           string                    `json:"op,omitempty"`
	Message      *message.Message          `json:"message,omitempty"`
	Final        bool                      `json:"final,omitempty"`
	Notification *message.ToolNotification `json:"notification,omitempty"`
	Conversation []message.Message         `json:"conversation,omitempty"`
	Session      *store.Record             `json:"session,omitempty"`
	Sessions     []*store.Record           `json:"sessions,omitempty"`
	Error        string                    `json:"error,omitempty"`
}

// Stream adapts session sink callbacks into a buffered channel of Items.
// Emission never blocks the engine's event loop: when the buffer is full
// the item is dropped with a warning, and after Close all emits are no-ops.
type Stream struct {
	items     chan Item
	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

func NewStream(buffer int, log *slog.Logger) *Stream {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Stream{
		items: make(chan Item, buffer),
		done:  make(chan struct{}),
		log:   log,
	}
}

// Items returns the channel the host consumes. There is a single consumer;
// the channel is never closed, use Done to detect shutdown.
func (s *Stream) Items() <-chan Item {
	return s.items
}

func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Emit enqueues an item for the host. Safe to call from any goroutine.
func (s *Stream) Emit(item Item) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.items <- item:
	case <-s.done:
	default:
		s.log.Warn("host stream buffer full, dropping item", "type", item.Type)
	}
}

// Message implements session.Sink.
func (s *Stream) Message(msg message.Message, final bool) {
	s.Emit(Item{Type: ItemTypeMessage, Message: &msg, Final: final})
}

// Notification implements session.Sink.
func (s *Stream) Notification(n message.ToolNotification) {
	s.Emit(Item{Type: ItemTypeNotification, Notification: &n})
}

// Completed implements session.Sink.
func (s *Stream) Completed(conversation []message.Message) {
	s.Emit(Item{Type: ItemTypeCompleted, Conversation: conversation})
}

// Failed implements session.Sink.
func (s *Stream) Failed(err error, conversation []message.Message) {
	s.Emit(Item{Type: ItemTypeError, Error: err.Error(), Conversation: conversation})
}
