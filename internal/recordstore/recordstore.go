// Package recordstore provides an append-only, spill-to-disk store for
// the records an indexing run produces (content blobs, file pointers,
// symbol/reference records, chunk mappings). Records are appended as
// NDJSON to a scratch file as they're produced, so a driver never has to
// retain the full set of a large run's records in memory; they're read
// back later as streamed batches.
package recordstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// flushThresholdBytes is the buffered-write flush threshold before a
// Writer's in-memory buffer is flushed to its spill file.
const flushThresholdBytes = 512 * 1024

// Writer appends JSON-serializable records of type T to a scratch file,
// buffering writes until flushThresholdBytes before touching disk. Safe
// for concurrent use by multiple goroutines producing records for the
// same store.
type Writer[T any] struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	buf    *bytes.Buffer
	count  int
	closed bool
}

// NewWriter creates a Writer backed by a new temp file under dir.
func NewWriter[T any](dir string) (*Writer[T], error) {
	f, err := os.CreateTemp(dir, "pointer-records-*.ndjson")
	if err != nil {
		return nil, fmt.Errorf("create record spill file: %w", err)
	}

	return &Writer[T]{
		file: f,
		path: f.Name(),
		buf:  bytes.NewBuffer(make([]byte, 0, flushThresholdBytes)),
	}, nil
}

// Append serializes value as one NDJSON line and buffers it for write.
func (w *Writer[T]) Append(value T) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("append to closed record writer")
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	w.buf.Write(encoded)
	w.buf.WriteByte('\n')
	w.count++

	if w.buf.Len() >= flushThresholdBytes {
		return w.flushLocked()
	}
	return nil
}

func (w *Writer[T]) flushLocked() error {
	if w.buf.Len() == 0 {
		return nil
	}
	if _, err := w.file.Write(w.buf.Bytes()); err != nil {
		return fmt.Errorf("flush record buffer: %w", err)
	}
	w.buf.Reset()
	return nil
}

// Count returns the number of records appended so far.
func (w *Writer[T]) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Finish flushes any remaining buffered bytes and returns a Store that
// streams the spilled records back. The Writer must not be used
// afterward.
func (w *Writer[T]) Finish() (*Store[T], error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, fmt.Errorf("record writer already finished")
	}

	if err := w.flushLocked(); err != nil {
		return nil, err
	}
	if err := w.file.Close(); err != nil {
		return nil, fmt.Errorf("close record spill file: %w", err)
	}
	w.closed = true

	return &Store[T]{path: w.path, count: w.count}, nil
}

// Store is a finished, read-only view over a Writer's spilled records.
type Store[T any] struct {
	path  string
	count int
}

// Count returns the total number of records in the store.
func (s *Store[T]) Count() int { return s.count }

// IsEmpty reports whether the store holds zero records.
func (s *Store[T]) IsEmpty() bool { return s.count == 0 }

// Path returns the on-disk NDJSON spill file path.
func (s *Store[T]) Path() string { return s.path }

// Stream opens a Stream for reading records back in batches.
func (s *Store[T]) Stream() (*Stream[T], error) {
	f, err := os.Open(s.path) // #nosec G304 -- path is our own spill file
	if err != nil {
		return nil, fmt.Errorf("open record store %s: %w", s.path, err)
	}
	return &Stream[T]{reader: bufio.NewReaderSize(f, 64*1024), file: f}, nil
}

// ForEachRawLine invokes fn with each raw (un-parsed) NDJSON line, in
// order, without ever materializing the full file contents.
func (s *Store[T]) ForEachRawLine(fn func(line []byte) error) error {
	f, err := os.Open(s.path) // #nosec G304 -- path is our own spill file
	if err != nil {
		return fmt.Errorf("open record store %s: %w", s.path, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := bytes.TrimRight(line, "\r\n")
			if len(trimmed) > 0 {
				if ferr := fn(trimmed); ferr != nil {
					return ferr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read record line: %w", err)
		}
	}
}

// Close removes the underlying spill file. Call once all readers are
// done with the store.
func (s *Store[T]) Close() error {
	if s.path == "" {
		return nil
	}
	return os.Remove(s.path)
}

// Stream reads a Store's records back as deserialized batches.
type Stream[T any] struct {
	reader *bufio.Reader
	file   *os.File
}

// NextBatch reads up to batchSize records. A short (or zero-length)
// result means the stream is exhausted.
func (s *Stream[T]) NextBatch(batchSize int) ([]T, error) {
	if batchSize <= 0 {
		return nil, nil
	}

	batch := make([]T, 0, batchSize)
	for len(batch) < batchSize {
		line, err := s.reader.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := bytes.TrimRight(line, "\r\n")
			if len(trimmed) > 0 {
				var item T
				if uerr := json.Unmarshal(trimmed, &item); uerr != nil {
					return nil, fmt.Errorf("unmarshal record: %w", uerr)
				}
				batch = append(batch, item)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record line: %w", err)
		}
	}

	return batch, nil
}

// Close releases the underlying file handle.
func (s *Stream[T]) Close() error {
	return s.file.Close()
}

// Section is the scratch-directory root for one indexing run's record
// stores, mirroring the per-kind spill files a driver accumulates.
type Section struct {
	dir string
}

// NewSection creates (or reuses) a scratch directory for one run.
func NewSection(scratchRoot, runID string) (*Section, error) {
	dir := filepath.Join(scratchRoot, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Section{dir: dir}, nil
}

// Dir returns the scratch directory backing this section's writers.
func (s *Section) Dir() string { return s.dir }

// RemoveAll deletes the entire scratch directory tree for this section.
func (s *Section) RemoveAll() error {
	return os.RemoveAll(s.dir)
}
