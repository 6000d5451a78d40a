package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Local is a JSON-file-backed session store. It keeps one record per
// session id under root (sessions/<id>.json) and writes atomically via
// temp file and rename.
type Local struct {
	root string
	mu   sync.RWMutex
	log  *slog.Logger
}

// NewLocal creates a Local store rooted at the given directory.
func NewLocal(root string, log *slog.Logger) *Local {
	if log == nil {
		log = slog.Default()
	}
	return &Local{root: root, log: log}
}

func (s *Local) sessionsDir() string {
	return filepath.Join(s.root, "sessions")
}

func (s *Local) recordPath(id string) string {
	return filepath.Join(s.sessionsDir(), id+".json")
}

// Save persists the record, updating its derived fields.
func (s *Local) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Touch()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}

	// Atomic write: write to temp file then rename
	path := s.recordPath(rec.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp record: %w", err)
	}
	return nil
}

// Load returns the record with the given id, or ErrNotFound.
func (s *Local) Load(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read session record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session record %s: %w", id, err)
	}
	return &rec, nil
}

// List enumerates all records sorted by UpdatedAt descending. Records
// that fail to parse are skipped so one corrupt file cannot break the
// whole listing.
func (s *Local) List(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.sessionsDir(), name))
		if err != nil {
			s.log.Warn("skipping unreadable session record", "file", name, "error", err)
			continue
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			s.log.Warn("skipping corrupt session record", "file", name, "error", err)
			continue
		}
		records = append(records, &rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *Local) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session record: %w", err)
	}
	return nil
}
