// internal/jsonlutil/jsonlutil.go
package jsonlutil

import (
	"bufio"
	"io"
	"sync"

	"github.com/bytedance/sonic"
)

// Reuse a 64 KiB buffered writer across JSONL writers to avoid per-writer mallocs.
var bwPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, 64<<10)
	},
}

// Encoder writes one JSON value per line through a pooled buffer.
type Encoder struct {
	bw  *bufio.Writer
	enc sonic.Encoder
}

// New binds a pooled buffer to out. Close must be called to return it.
func New(out io.Writer) *Encoder {
	bw := bwPool.Get().(*bufio.Writer)
	bw.Reset(out)
	return &Encoder{bw: bw, enc: sonic.ConfigDefault.NewEncoder(bw)}
}

// Encode buffers v followed by a newline.
func (e *Encoder) Encode(v any) error { return e.enc.Encode(v) }

// Flush pushes buffered lines to the underlying writer.
func (e *Encoder) Flush() error { return e.bw.Flush() }

// Close flushes and gives the buffer back to the pool. The encoder must not
// be used afterwards.
func (e *Encoder) Close() error {
	if e.bw == nil {
		return nil
	}
	err := e.bw.Flush()
	// Drop the reference to the caller's writer before pooling.
	e.bw.Reset(io.Discard)
	bwPool.Put(e.bw)
	e.bw, e.enc = nil, nil
	return err
}
