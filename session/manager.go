// Package session ties an engine handle, an accumulator, and the session
// stores together into a single persistent conversation. The manager owns
// at most one live session at a time; creating or resuming a session
// tears down the previous one.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bazelment/agentrelay/accum"
	"github.com/bazelment/agentrelay/engine"
	"github.com/bazelment/agentrelay/internal/tokens"
	"github.com/bazelment/agentrelay/message"
	"github.com/bazelment/agentrelay/protocol"
	"github.com/bazelment/agentrelay/store"
	"github.com/bazelment/agentrelay/translate"
)

// Backend selects where session records are persisted. The local store is
// always written; the remote store is additionally updated when selected.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

// Sink receives the outputs of a prompt cycle. Message is called for every
// snapshot and final commit, in accumulator order; exactly one of Completed
// or Failed ends the cycle.
type Sink interface {
	// Message delivers a normalized message. final is false for in-flight
	// snapshots (which replace prior snapshots with the same id) and true
	// when the message is committed to the conversation.
	Message(msg message.Message, final bool)

	// Notification delivers an out-of-band tool execution notification.
	Notification(n message.ToolNotification)

	// Completed reports a successfully completed stream along with the
	// full conversation as persisted.
	Completed(conversation []message.Message)

	// Failed reports a prompt invocation failure. Any messages committed
	// before the failure are retained in the conversation.
	Failed(err error, conversation []message.Message)
}

// Config configures a Manager. Engine and Local are required; Remote, Sink,
// Counter, and Log are optional.
type Config struct {
	Engine  engine.Engine
	Local   store.Store
	Remote  *store.Remote
	Sink    Sink
	Counter *tokens.Counter
	Log     *slog.Logger
}

// Manager owns the single live session and mediates all prompt traffic
// between the host and the engine.
type Manager struct {
	engine  engine.Engine
	local   store.Store
	remote  *store.Remote
	sink    Sink
	counter *tokens.Counter
	log     *slog.Logger

	mu        sync.Mutex
	current   *liveSession
	prompting bool
}

// liveSession bundles the state attached to one created or resumed session.
type liveSession struct {
	handle      engine.Handle
	record      *store.Record
	backend     Backend
	accumulator *accum.Accumulator
	unsubscribe func()

	// baseLen is the conversation length before the current prompt
	// cycle's streamed output; committed messages are appended after it.
	baseLen int
}

func NewManager(cfg Config) *Manager {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = nopSink{}
	}
	return &Manager{
		engine:  cfg.Engine,
		local:   cfg.Local,
		remote:  cfg.Remote,
		sink:    sink,
		counter: cfg.Counter,
		log:     log,
	}
}

// CreateSession starts a fresh session rooted at workingDirectory. With the
// remote backend the session id is assigned by the remote service; otherwise
// a timestamp-derived id is generated locally. The empty record is persisted
// immediately so the session is listable before any prompt.
func (m *Manager) CreateSession(ctx context.Context, workingDirectory string, backend Backend) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()

	handle, err := m.engine.Create(ctx, engine.Options{WorkingDirectory: workingDirectory})
	if err != nil {
		return nil, fmt.Errorf("create engine session: %w", err)
	}

	now := time.Now().UTC()
	id := newSessionID(now)
	if backend == BackendRemote && m.remote != nil {
		rs, err := m.remote.Create(ctx, workingDirectory)
		if err != nil {
			handle.Close()
			return nil, fmt.Errorf("create remote session: %w", err)
		}
		id = rs.ID
		if !rs.CreatedAt.IsZero() {
			now = rs.CreatedAt
		}
	}

	rec := &store.Record{
		ID:               id,
		CreatedAt:        now,
		UpdatedAt:        now,
		WorkingDirectory: workingDirectory,
		Backend:          string(backend),
	}
	if err := m.local.Save(ctx, rec); err != nil {
		handle.Close()
		return nil, fmt.Errorf("persist new session: %w", err)
	}

	m.current = &liveSession{handle: handle, record: rec, backend: backend}
	m.log.Info("session created", "id", rec.ID, "backend", backend, "dir", workingDirectory)
	return rec, nil
}

// ResumeSession loads a persisted session and primes a fresh engine handle
// with its conversation. With the remote backend the record is fetched
// remotely first, falling back to the local store before failing.
func (m *Manager) ResumeSession(ctx context.Context, id string, backend Backend) (*store.Record, error) {
	rec, err := m.loadRecord(ctx, id, backend)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()

	handle, err := m.engine.Create(ctx, engine.Options{WorkingDirectory: rec.WorkingDirectory})
	if err != nil {
		return nil, fmt.Errorf("create engine session: %w", err)
	}

	if len(rec.Conversation) > 0 {
		ext := make([]protocol.Message, 0, len(rec.Conversation))
		for _, msg := range rec.Conversation {
			if em := translate.ToExternal(msg); em != nil {
				ext = append(ext, *em)
			}
		}
		if err := handle.ReplaceMessages(ctx, ext); err != nil {
			// The handle is still usable for new prompts; it just lacks
			// the prior context.
			m.log.Warn("priming resumed session failed", "id", rec.ID, "error", err)
		}
	}

	rec.Backend = string(backend)
	m.current = &liveSession{handle: handle, record: rec, backend: backend}
	m.log.Info("session resumed", "id", rec.ID, "backend", backend, "messages", len(rec.Conversation))
	return rec, nil
}

func (m *Manager) loadRecord(ctx context.Context, id string, backend Backend) (*store.Record, error) {
	if backend == BackendRemote && m.remote != nil {
		rec, err := m.remote.Fetch(ctx, id)
		if err == nil {
			return rec, nil
		}
		m.log.Warn("remote fetch failed, trying local store", "id", id, "error", err)
	}
	rec, err := m.local.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return rec, nil
}

// Prompt sends user text to the live session and streams the results to the
// sink. It returns once the engine acknowledges the turn; the stream itself
// completes when the engine reports the end of its activity, at which point
// the sink's Completed callback fires. A second Prompt before that point
// returns ErrPromptInFlight.
func (m *Manager) Prompt(ctx context.Context, text string) error {
	m.mu.Lock()
	cur := m.current
	if cur == nil {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	if m.prompting || cur.handle.IsStreaming() {
		m.mu.Unlock()
		return ErrPromptInFlight
	}
	m.prompting = true

	userMsg := message.NewUserText(text)
	cur.record.Conversation = append(cur.record.Conversation, userMsg)
	cur.baseLen = len(cur.record.Conversation)

	var once sync.Once
	acc := accum.New(accum.Callbacks{
		OnMessage: func(msg message.Message, final bool) {
			m.sink.Message(msg, final)
			if final {
				m.mu.Lock()
				if m.current == cur {
					m.commitLocked(cur)
					m.persistLocked(cur)
				}
				m.mu.Unlock()
			}
		},
		OnNotification: func(n message.ToolNotification) {
			m.sink.Notification(n)
		},
		OnComplete: func() {
			once.Do(func() {
				m.mu.Lock()
				var conv []message.Message
				if m.current == cur {
					m.commitLocked(cur)
					m.persistLocked(cur)
					conv = append(conv, cur.record.Conversation...)
					m.prompting = false
				}
				m.mu.Unlock()
				m.sink.Completed(conv)
			})
		},
	})
	cur.accumulator = acc
	if cur.unsubscribe != nil {
		cur.unsubscribe()
	}
	cur.unsubscribe = cur.handle.Subscribe(acc.HandleEvent)
	m.mu.Unlock()

	m.sink.Message(userMsg, true)
	m.mu.Lock()
	m.persistLocked(cur)
	m.mu.Unlock()

	if err := cur.handle.Prompt(ctx, text); err != nil {
		werr := fmt.Errorf("engine prompt: %w", err)
		once.Do(func() {
			m.mu.Lock()
			var conv []message.Message
			if m.current == cur {
				m.commitLocked(cur)
				m.persistLocked(cur)
				conv = append(conv, cur.record.Conversation...)
				m.prompting = false
			}
			m.mu.Unlock()
			m.sink.Failed(werr, conv)
		})
		return werr
	}
	return nil
}

// commitLocked rebuilds the conversation as everything before this prompt
// cycle plus the accumulator's committed messages. Repeated commits of one
// message id replace in place, so rebuilding is idempotent.
func (m *Manager) commitLocked(cur *liveSession) {
	if cur.accumulator == nil {
		return
	}
	committed := cur.accumulator.Messages()
	conv := cur.record.Conversation[:cur.baseLen:cur.baseLen]
	cur.record.Conversation = append(conv, committed...)
}

// persistLocked writes the record to the local store synchronously and, for
// remote-backed sessions, pushes the full conversation to the remote service
// in the background. Remote failures are logged and swallowed; the local
// copy remains the source of truth.
func (m *Manager) persistLocked(cur *liveSession) {
	rec := cur.record
	if m.counter != nil {
		rec.InputTokens, rec.OutputTokens = m.counter.CountConversation(rec.Conversation)
	}
	if err := m.local.Save(context.Background(), rec); err != nil {
		m.log.Error("local persist failed", "id", rec.ID, "error", err)
	}
	if cur.backend == BackendRemote && m.remote != nil {
		id := rec.ID
		conv := append([]message.Message(nil), rec.Conversation...)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := m.remote.ReplaceConversation(ctx, id, conv); err != nil {
				perr := &PersistenceError{Backend: "remote", Op: "replace_conversation", Cause: err}
				m.log.Warn("remote persist failed", "id", id, "error", perr)
			}
		}()
	}
}

// Abort requests cooperative cancellation of any in-flight activity. The
// engine decides how much of the current stream still arrives.
func (m *Manager) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.handle.Abort()
	}
}

// Stop tears down the live session, if any. The persisted record survives
// and can be resumed later.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

// Current returns the live session's record, or nil when none is active.
func (m *Manager) Current() *store.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.record
}

// IsStreaming reports whether a prompt cycle is still in flight.
func (m *Manager) IsStreaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompting
}

func (m *Manager) teardownLocked() {
	if m.current == nil {
		return
	}
	cur := m.current
	if cur.unsubscribe != nil {
		cur.unsubscribe()
	}
	if err := cur.handle.Close(); err != nil {
		m.log.Warn("closing engine session", "id", cur.record.ID, "error", err)
	}
	m.current = nil
	m.prompting = false
}

func newSessionID(now time.Time) string {
	return fmt.Sprintf("s-%d-%s", now.UnixMilli(), message.NewID()[:6])
}

type nopSink struct{}

func (nopSink) Message(message.Message, bool)         {}
func (nopSink) Notification(message.ToolNotification) {}
func (nopSink) Completed([]message.Message)           {}
func (nopSink) Failed(error, []message.Message)       {}
