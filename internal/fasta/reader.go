// internal/fasta/reader.go
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// Record is one read. Qual is nil for FASTA input.
type Record struct {
	ID   string
	Seq  []byte
	Qual []byte
}

// MalformedError describes a record that could not be parsed. The reader has
// already moved past it, so reading can continue.
type MalformedError struct {
	Line int
	ID   string
	Msg  string
}

func (e *MalformedError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("line %d: record %q: %s", e.Line, e.ID, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Reader streams FASTA and FASTQ records. The format is decided per record
// by its header marker ('>' or '@').
type Reader struct {
	// SkipMalformed makes Fill drop malformed records instead of failing.
	SkipMalformed bool

	rc      io.Closer
	br      *bufio.Reader
	line    int
	pending []byte // a header line read ahead of the record it starts
	skipped int
}

// Open opens path, decompressing gzip or zstd input. The path "-" reads
// stdin, or os.Stdin when stdin is nil; compression is detected the same way.
func Open(path string, stdin io.Reader) (*Reader, error) {
	rc, err := openReader(path, stdin)
	if err != nil {
		return nil, err
	}
	r := NewReader(rc)
	r.rc = rc
	return r, nil
}

// NewReader reads records from an uncompressed stream.
func NewReader(src io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(src, 64<<10)}
}

// Close releases the underlying file, if the reader opened one.
func (r *Reader) Close() error {
	if r.rc == nil {
		return nil
	}
	return r.rc.Close()
}

// Skipped returns how many malformed records Fill has dropped.
func (r *Reader) Skipped() int { return r.skipped }

// Fill appends up to limit records to dst and returns it. Fewer than limit
// records means the input is exhausted; that is not an error.
func (r *Reader) Fill(ctx context.Context, dst []Record, limit int) ([]Record, error) {
	for added := 0; added < limit; {
		rec, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			return dst, nil
		}
		var merr *MalformedError
		if errors.As(err, &merr) && r.SkipMalformed {
			r.skipped++
			continue
		}
		if err != nil {
			return dst, err
		}
		dst = append(dst, rec)
		added++
	}
	return dst, nil
}

// Next returns the next record, io.EOF at the end of input, or a
// *MalformedError for a record it had to skip over.
func (r *Reader) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	hdr, err := r.nextNonEmpty()
	if err != nil {
		return Record{}, err
	}
	switch hdr[0] {
	case '>':
		return r.readFASTA(hdr)
	case '@':
		return r.readFASTQ(hdr)
	}
	return Record{}, &MalformedError{Line: r.line, Msg: "expected '>' or '@' header"}
}

func (r *Reader) readFASTA(hdr []byte) (Record, error) {
	rec := Record{ID: parseHeaderID(hdr[1:])}
	start := r.line
	for {
		line, err := r.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Record{}, err
		}
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' || line[0] == '@' {
			r.pending = line
			break
		}
		rec.Seq = append(rec.Seq, bytes.ToUpper(line)...)
	}
	if rec.ID == "" {
		return Record{}, &MalformedError{Line: start, Msg: "empty record name"}
	}
	if len(rec.Seq) == 0 {
		return Record{}, &MalformedError{Line: start, ID: rec.ID, Msg: "empty sequence"}
	}
	return rec, nil
}

// readFASTQ reads the four-line layout: header, sequence, '+', qualities.
func (r *Reader) readFASTQ(hdr []byte) (Record, error) {
	rec := Record{ID: parseHeaderID(hdr[1:])}
	start := r.line

	lines := make([][]byte, 0, 3)
	for len(lines) < 3 {
		line, err := r.readLine()
		if errors.Is(err, io.EOF) {
			return Record{}, &MalformedError{Line: start, ID: rec.ID, Msg: "truncated FASTQ record"}
		}
		if err != nil {
			return Record{}, err
		}
		// A header where the sequence belongs starts the next record.
		if len(lines) == 0 && len(line) > 0 && (line[0] == '@' || line[0] == '>') {
			r.pending = line
			return Record{}, &MalformedError{Line: start, ID: rec.ID, Msg: "missing sequence"}
		}
		lines = append(lines, line)
	}

	seq, sep, qual := lines[0], lines[1], lines[2]
	switch {
	case rec.ID == "":
		return Record{}, &MalformedError{Line: start, Msg: "empty record name"}
	case len(sep) == 0 || sep[0] != '+':
		return Record{}, &MalformedError{Line: start + 2, ID: rec.ID, Msg: "missing '+' separator"}
	case len(seq) == 0:
		return Record{}, &MalformedError{Line: start + 1, ID: rec.ID, Msg: "empty sequence"}
	case len(seq) != len(qual):
		return Record{}, &MalformedError{Line: start + 3, ID: rec.ID,
			Msg: fmt.Sprintf("sequence has %d bases but %d qualities", len(seq), len(qual))}
	}
	rec.Seq = bytes.ToUpper(seq)
	rec.Qual = bytes.Clone(qual)
	return rec, nil
}

func (r *Reader) nextNonEmpty() ([]byte, error) {
	if r.pending != nil {
		line := r.pending
		r.pending = nil
		return line, nil
	}
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if len(line) > 0 {
			return line, nil
		}
	}
}

// readLine returns the next line without its line terminator. The returned
// slice is owned by the caller.
func (r *Reader) readLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return nil, err
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("fasta read: %w", err)
	}
	r.line++
	line = bytes.TrimRight(line, "\r\n")
	return line, nil
}

func parseHeaderID(hdr []byte) string {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i])
	}
	return string(hdr)
}
