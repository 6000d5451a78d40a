package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bazelment/agentrelay/internal/ndjson"
	"github.com/bazelment/agentrelay/session"
	"github.com/bazelment/agentrelay/store"
)

// command is one inbound NDJSON frame from the host.
type command struct {
	Op      string `json:"op"`
	Dir     string `json:"dir,omitempty"`
	ID      string `json:"id,omitempty"`
	Backend string `json:"backend,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Server speaks the host protocol over a reader/writer pair, typically
// stdin/stdout. Inbound frames are commands; outbound frames are Items.
type Server struct {
	mgr    *session.Manager
	local  store.Store
	stream *Stream
	log    *slog.Logger
}

func NewServer(mgr *session.Manager, local store.Store, stream *Stream, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{mgr: mgr, local: local, stream: stream, log: log}
}

// Run serves until the reader is exhausted, the context is canceled, or an
// unrecoverable write error occurs. The live session, if any, is stopped on
// the way out.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	defer s.mgr.Stop()
	defer s.stream.Close()

	wr := ndjson.NewWriter(w)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stream.Done():
				return nil
			case item := <-s.stream.Items():
				if err := wr.Write(item); err != nil {
					return fmt.Errorf("write host stream: %w", err)
				}
			}
		}
	})

	g.Go(func() error {
		defer s.stream.Close()
		rd := ndjson.NewReader(r)
		for {
			line, err := rd.ReadLine()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("read host command: %w", err)
			}
			var cmd command
			if err := json.Unmarshal(line, &cmd); err != nil {
				s.result("", nil, nil, fmt.Errorf("malformed command: %w", err))
				continue
			}
			s.handle(ctx, cmd)
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) handle(ctx context.Context, cmd command) {
	switch cmd.Op {
	case "create":
		rec, err := s.mgr.CreateSession(ctx, cmd.Dir, backendFor(cmd.Backend))
		s.result(cmd.Op, rec, nil, err)
	case "resume":
		rec, err := s.mgr.ResumeSession(ctx, cmd.ID, backendFor(cmd.Backend))
		s.result(cmd.Op, rec, nil, err)
	case "prompt":
		// Prompt blocks until the engine acknowledges the turn, so it runs
		// off the command loop; abort stays serviceable meanwhile.
		go func() {
			err := s.mgr.Prompt(ctx, cmd.Text)
			if err == nil {
				s.result(cmd.Op, nil, nil, nil)
				return
			}
			s.log.Warn("prompt failed", "error", err)
			if errors.Is(err, session.ErrNoActiveSession) || errors.Is(err, session.ErrPromptInFlight) {
				// Rejected before a stream cycle started, so the sink
				// carries nothing; the result frame is the only way the
				// host learns of the failure.
				s.result(cmd.Op, nil, nil, err)
			}
			// Invocation failures already reached the stream through the
			// sink's error item.
		}()
	case "abort":
		s.mgr.Abort()
		s.result(cmd.Op, nil, nil, nil)
	case "stop":
		s.mgr.Stop()
		s.result(cmd.Op, nil, nil, nil)
	case "list":
		recs, err := s.local.List(ctx)
		s.result(cmd.Op, nil, recs, err)
	case "delete":
		err := s.local.Delete(ctx, cmd.ID)
		s.result(cmd.Op, nil, nil, err)
	default:
		s.result(cmd.Op, nil, nil, fmt.Errorf("unknown op %q", cmd.Op))
	}
}

func (s *Server) result(op string, rec *store.Record, recs []*store.Record, err error) {
	item := Item{Type: ItemTypeResult, Op: op, Session: rec, Sessions: recs}
	if err != nil {
		item.Error = err.Error()
	}
	s.stream.Emit(item)
}

func backendFor(name string) session.Backend {
	if name == string(session.BackendRemote) {
		return session.BackendRemote
	}
	return session.BackendLocal
}
