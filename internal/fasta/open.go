// internal/fasta/open.go
package fasta

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// multiReadCloser closes every underlying closer, innermost first.
type multiReadCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openReader opens path ("-" reads stdin, os.Stdin when nil) and
// transparently decompresses gzip and zstd, detected by magic number or by
// .gz/.zst suffix.
func openReader(path string, stdin io.Reader) (io.ReadCloser, error) {
	var (
		src    io.Reader
		closer func() error
	)
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		src, closer = stdin, func() error { return nil }
	} else {
		fh, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		src, closer = fh, fh.Close
	}

	br := bufio.NewReaderSize(src, 256<<10)
	sig, _ := br.Peek(4)

	switch {
	case bytes.HasPrefix(sig, gzipMagic) || strings.HasSuffix(path, ".gz"):
		gr, err := gzip.NewReader(br)
		if err != nil {
			_ = closer()
			return nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []func() error{gr.Close, closer}}, nil
	case bytes.HasPrefix(sig, zstdMagic) || strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(br)
		if err != nil {
			_ = closer()
			return nil, err
		}
		return &multiReadCloser{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			closer,
		}}, nil
	}
	return &multiReadCloser{Reader: br, closers: []func() error{closer}}, nil
}
