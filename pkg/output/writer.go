// pkg/output/writer.go

// Package output writes extraction records as newline-delimited JSON.
package output

import (
	"bytes"
	"encoding/json"
	"os"

	cerr "github.com/cockroachdb/errors"
)

// ErrWrite marks failures to create or write the output file. They are always
// fatal to a run, whatever the per-repository failure policy.
var ErrWrite = cerr.New("output write failed")

// Writer appends one JSON document per line to a file it owns.
type Writer struct {
	Path string

	file  *os.File
	count int
}

// Create truncates or creates the file at path. Running twice with the same
// path replaces the previous output.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, cerr.Mark(cerr.WithHint(
			cerr.Wrapf(err, "create output %s", path),
			"check that the output directory exists and is writable"), ErrWrite)
	}
	return &Writer{Path: path, file: f}, nil
}

// Write serializes v and writes it with its trailing newline in a single
// call, so an interrupted run leaves only complete lines behind.
func (w *Writer) Write(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return cerr.Wrap(err, "encode record")
	}

	if _, err := w.file.Write(buf.Bytes()); err != nil {
		return cerr.Mark(cerr.Wrapf(err, "write %s", w.Path), ErrWrite)
	}
	w.count++
	return nil
}

// Count returns the number of lines written so far.
func (w *Writer) Count() int {
	return w.count
}

// Close closes the file. Calling it more than once is a no-op.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return cerr.Mark(cerr.Wrapf(err, "close %s", w.Path), ErrWrite)
	}
	return nil
}
