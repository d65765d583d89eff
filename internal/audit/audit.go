// Package audit records order book mutations as JSON lines so imports and
// edits can be traced after the fact.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one audit record. Only the fields relevant to the action are set.
type Entry struct {
	Action       string    `json:"action"`
	Actor        string    `json:"actor,omitempty"`
	UploadedName string    `json:"uploaded_name,omitempty"`
	WO           string    `json:"wo,omitempty"`
	Rows         int       `json:"rows,omitempty"`
	At           time.Time `json:"at"`
}

type Writer interface {
	Append(e Entry) error
}

// Discard drops every entry, for deployments that run without an audit log.
var Discard Writer = discard{}

type discard struct{}

func (discard) Append(Entry) error { return nil }

// MultiWriter fans out entries to multiple underlying writers.
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

func (m *MultiWriter) Append(e Entry) error {
	for _, w := range m.writers {
		if err := w.Append(e); err != nil {
			return err
		}
	}
	return nil
}

// FileWriter appends entries to a JSONL file, opening per append so log
// rotation never holds a stale handle.
type FileWriter struct {
	path string
}

func NewFileWriter(path string) (*FileWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}
	return &FileWriter{path: path}, nil
}

func (w *FileWriter) Append(e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(&e); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
