package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/bazelment/agentrelay/internal/ndjson"
	"github.com/bazelment/agentrelay/internal/procattr"
	"github.com/bazelment/agentrelay/protocol"
)

// CLIEngine spawns one engine CLI subprocess per handle. The subprocess
// reads commands as JSON lines on stdin and emits protocol events as
// JSON lines on stdout.
type CLIEngine struct {
	Command string
	Args    []string
	Env     map[string]string
	Log     *slog.Logger
}

// NewCLIEngine creates a CLIEngine for the given command.
func NewCLIEngine(command string, args ...string) *CLIEngine {
	return &CLIEngine{Command: command, Args: args}
}

func (e *CLIEngine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// Create spawns a new engine subprocess scoped to the working directory.
func (e *CLIEngine) Create(ctx context.Context, opts Options) (Handle, error) {
	cmd := exec.Command(e.Command, e.Args...)
	cmd.Dir = opts.WorkingDirectory
	cmd.Env = os.Environ()
	for k, v := range e.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	procattr.Set(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &ProcessError{Message: "create stdin pipe", Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ProcessError{Message: "create stdout pipe", Cause: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &ProcessError{Message: "create stderr pipe", Cause: err}
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &UnavailableError{Command: e.Command, Cause: err}
		}
		return nil, &ProcessError{Message: "start engine process", Cause: err}
	}

	h := &procHandle{
		cmd:    cmd,
		writer: ndjson.NewWriter(stdin),
		stdin:  stdin,
		state:  newHandleStateManager(),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		log:    e.logger().With("engine", e.Command),
	}

	go h.readLoop(ndjson.NewReader(stdout))
	go h.stderrLoop(stderr)
	go func() {
		h.waitErr = cmd.Wait()
		close(h.exited)
	}()

	return h, nil
}

// engineCommand is one command line written to the subprocess.
type engineCommand struct {
	Op       string             `json:"op"`
	Text     string             `json:"text,omitempty"`
	Messages []protocol.Message `json:"messages,omitempty"`
}

// procHandle is a live handle backed by a subprocess.
type procHandle struct {
	cmd     *exec.Cmd
	writer  *ndjson.Writer
	stdin   io.Closer
	state   *handleStateManager
	log     *slog.Logger
	done    chan struct{}
	exited  chan struct{}
	waitErr error

	mu        sync.Mutex
	sub       *subscription
	turnDone  chan error
	closeOnce sync.Once
}

// subscription wraps a listener so a stale unsubscribe can be told apart
// from the currently registered one.
type subscription struct {
	fn func(protocol.Event)
}

// Subscribe registers the single event listener.
func (h *procHandle) Subscribe(fn func(protocol.Event)) func() {
	sub := &subscription{fn: fn}
	h.mu.Lock()
	h.sub = sub
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		// Only clear if still the registered listener; a stale
		// unsubscribe after a resubscribe must not drop the newer one.
		if h.sub == sub {
			h.sub = nil
		}
		h.mu.Unlock()
	}
}

// Prompt sends the prompt command and blocks until the engine reports
// turn completion, the process exits, or ctx is cancelled.
func (h *procHandle) Prompt(ctx context.Context, text string) error {
	if err := h.state.SetStreaming(); err != nil {
		return err
	}

	h.mu.Lock()
	h.turnDone = make(chan error, 1)
	turnDone := h.turnDone
	h.mu.Unlock()

	if err := h.writer.Write(engineCommand{Op: "prompt", Text: text}); err != nil {
		h.state.SetIdle()
		return &ProcessError{Message: "write prompt", Cause: err}
	}

	select {
	case err := <-turnDone:
		h.state.SetIdle()
		return err
	case <-ctx.Done():
		h.state.SetIdle()
		return ctx.Err()
	case <-h.exited:
		h.state.SetIdle()
		return &ProcessError{Message: "engine process exited during prompt", Cause: h.waitErr, ExitCode: h.cmd.ProcessState.ExitCode()}
	case <-h.done:
		h.state.SetIdle()
		return ErrClosed
	}
}

// Abort requests cooperative cancellation. Already-emitted events are
// unaffected.
func (h *procHandle) Abort() {
	if h.state.IsClosed() {
		return
	}
	if err := h.writer.Write(engineCommand{Op: "abort"}); err != nil {
		h.log.Warn("abort write failed", "error", err)
	}
}

// IsStreaming reports whether a prompt is in flight.
func (h *procHandle) IsStreaming() bool {
	return h.state.IsStreaming()
}

// ReplaceMessages primes the engine with prior history in one call.
func (h *procHandle) ReplaceMessages(ctx context.Context, msgs []protocol.Message) error {
	if h.state.IsClosed() {
		return ErrClosed
	}
	if err := h.writer.Write(engineCommand{Op: "replace_messages", Messages: msgs}); err != nil {
		return &ProcessError{Message: "write replace_messages", Cause: err}
	}
	return nil
}

// Close shuts the subprocess down: SIGTERM, then SIGKILL after a grace
// period.
func (h *procHandle) Close() error {
	h.closeOnce.Do(func() {
		h.state.SetClosed()
		close(h.done)
		h.stdin.Close()

		if h.cmd.Process != nil {
			_ = procattr.SignalGroup(h.cmd.Process, syscall.SIGTERM)
		}
		select {
		case <-h.exited:
			return
		case <-time.After(500 * time.Millisecond):
		}
		if h.cmd.Process != nil {
			_ = procattr.KillGroup(h.cmd.Process)
		}
		select {
		case <-h.exited:
		case <-time.After(100 * time.Millisecond):
		}
	})
	return nil
}

// readLoop parses stdout lines into events and forwards them to the
// subscriber. Malformed lines are logged and skipped to keep the stream
// alive.
func (h *procHandle) readLoop(reader *ndjson.Reader) {
	for {
		select {
		case <-h.done:
			return
		default:
		}

		line, err := reader.ReadLine()
		if err != nil {
			if err != io.EOF && !h.state.IsClosed() {
				h.log.Warn("engine stream read failed", "error", err)
			}
			h.signalTurnDone(&ProcessError{Message: "engine stream ended", Cause: err})
			return
		}

		ev, err := protocol.ParseEvent(line)
		if err != nil {
			h.log.Warn("unparseable engine event", "error", err)
			continue
		}

		if ev.Type == protocol.EventTypeTurnEnd || ev.Type == protocol.EventTypeAgentEnd {
			// Turn completion resolves the awaited prompt; deliver the
			// event first so subscribers observe it before Prompt returns.
			h.deliver(ev)
			h.signalTurnDone(nil)
			continue
		}

		h.deliver(ev)
	}
}

func (h *procHandle) deliver(ev protocol.Event) {
	h.mu.Lock()
	sub := h.sub
	h.mu.Unlock()
	if sub != nil {
		sub.fn(ev)
	}
}

func (h *procHandle) signalTurnDone(err error) {
	h.mu.Lock()
	ch := h.turnDone
	h.mu.Unlock()
	if ch != nil {
		select {
		case ch <- err:
		default:
		}
	}
}

func (h *procHandle) stderrLoop(stderr io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			h.log.Debug("engine stderr", "output", string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}
