package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dshills/dataprep-mcp/pkg/types"
)

// Writer appends records to a line-delimited JSON dataset file: one
// compact JSON object per line, UTF-8, every record terminated by a
// newline. Append is safe for concurrent use so pipeline workers can
// share one writer.
type Writer struct {
	mu    sync.Mutex
	f     *os.File
	buf   *bufio.Writer
	count int
}

// Create truncates (or creates) the dataset file at path, creating parent
// directories as needed.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset file: %w", err)
	}

	return &Writer{f: f, buf: bufio.NewWriter(f)}, nil
}

// Open opens the dataset file at path for appending, creating it if it
// does not exist.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}

	return &Writer{f: f, buf: bufio.NewWriter(f)}, nil
}

// Append validates and writes one record as a single JSONL line.
func (w *Writer) Append(rec types.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	line, err := rec.MarshalLine()
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.buf.Write(line); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.count++
	return nil
}

// AppendPair writes one instruction/response training example as a JSONL
// line. Used by the generation stage.
func (w *Writer) AppendPair(pair types.QAPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}

	line, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal pair: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.buf.Write(line); err != nil {
		return fmt.Errorf("failed to write pair: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write pair: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records appended through this writer.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Flush forces buffered lines to disk without closing the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("failed to flush dataset: %w", err)
	}
	return w.f.Close()
}
