// Package writer supplies the concrete Writer sinks spec.md §6 scopes
// as thin collaborators of the `vm.Writer` contract: an in-memory
// string sink and an OS-file sink, the two the spec names explicitly
// ("string", "file").
package writer

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gotengo/teng/vm"
)

// StringWriter accumulates rendered output in memory; String returns
// it once the render completes. It never fails a Write.
type StringWriter struct {
	b strings.Builder
}

// NewStringWriter returns an empty StringWriter.
func NewStringWriter() *StringWriter { return &StringWriter{} }

func (w *StringWriter) Write(p []byte) (int, error) { return w.b.Write(p) }
func (w *StringWriter) Flush() error                { return nil }

// String returns everything written so far.
func (w *StringWriter) String() string { return w.b.String() }

var _ vm.Writer = (*StringWriter)(nil)

// FileWriter renders into a buffered OS file, propagating write
// failures (a full disk, a revoked permission) the way spec.md §5
// requires: "the engine calls write many times; no buffering
// guarantees" from the Writer's perspective, but the Processor must
// see the I/O error.
type FileWriter struct {
	f  *os.File
	bw *bufio.Writer
}

// CreateFileWriter opens (truncating) path for writing.
func CreateFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("writer: create %s: %w", path, err)
	}
	return &FileWriter{f: f, bw: bufio.NewWriter(f)}, nil
}

func (w *FileWriter) Write(p []byte) (int, error) { return w.bw.Write(p) }

// Flush drains the buffer to disk and closes the underlying file;
// a FileWriter is single-use, matching one render per Processor.
func (w *FileWriter) Flush() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("writer: flush: %w", err)
	}
	return w.f.Close()
}

var _ vm.Writer = (*FileWriter)(nil)
