// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
	"sort"

	"methcall/internal/meth"
)

// Writer serializes batches of calls. calls[i] holds the calls of the i-th
// read of the batch; reads are written in that order.
type Writer interface {
	WriteBatch(calls [][]meth.Call) error
	// Close flushes pending output. It does not close the underlying writer.
	Close() error
}

// Factory builds a Writer on top of w.
type Factory func(w io.Writer, header bool) Writer

// Writer registry (format → factory). Formats register in init() blocks.
var factories = map[string]Factory{}

// Register adds a format (idempotent last-wins).
func Register(format string, f Factory) { factories[format] = f }

// Formats lists the registered formats, sorted.
func Formats() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Known reports whether a writer is registered for format.
func Known(format string) bool {
	_, ok := factories[format]
	return ok
}

// New returns the writer registered for format.
func New(format string, w io.Writer, header bool) (Writer, error) {
	f, ok := factories[format]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (no writer registered)", format)
	}
	return f(w, header), nil
}
