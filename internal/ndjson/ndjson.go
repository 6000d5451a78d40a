// Package ndjson provides line-oriented JSON reading and writing for
// subprocess and stdio transports.
package ndjson

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// maxLineSize bounds a single JSON line. Engine events carrying full
// message snapshots can be large.
const maxLineSize = 10 * 1024 * 1024

// Reader reads newline-delimited JSON lines.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// ReadLine returns the next non-empty line. It returns io.EOF when the
// underlying stream ends.
func (r *Reader) ReadLine() ([]byte, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Copy out: scanner reuses its buffer on the next Scan.
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Writer writes JSON values one per line. Writes are serialized so a
// Writer may be shared between goroutines.
type Writer struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write marshals v and writes it followed by a newline.
func (w *Writer) Write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal ndjson value: %w", err)
	}
	return w.WriteRaw(data)
}

// WriteRaw writes a pre-encoded JSON line.
func (w *Writer) WriteRaw(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	_, err := w.w.Write([]byte("\n"))
	return err
}
