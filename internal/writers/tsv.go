// internal/writers/tsv.go
package writers

import (
	"bufio"
	"io"
	"strconv"

	"methcall/internal/meth"
)

const tsvHeader = "read_name\tstart\tend\tlog_lik_ratio\tlog_lik_methylated\tlog_lik_unmethylated\tnum_motifs\tsequence\n"

func init() {
	Register("tsv", func(w io.Writer, header bool) Writer {
		return &tsvWriter{bw: bufio.NewWriterSize(w, 64<<10), header: header}
	})
}

type tsvWriter struct {
	bw     *bufio.Writer
	header bool // still owed
	line   []byte
}

func (t *tsvWriter) writeHeader() error {
	if !t.header {
		return nil
	}
	t.header = false
	_, err := t.bw.WriteString(tsvHeader)
	return err
}

func (t *tsvWriter) WriteBatch(calls [][]meth.Call) error {
	if err := t.writeHeader(); err != nil {
		return err
	}
	for _, read := range calls {
		for i := range read {
			t.line = appendRow(t.line[:0], &read[i])
			if _, err := t.bw.Write(t.line); err != nil {
				return err
			}
		}
	}
	return t.bw.Flush()
}

func (t *tsvWriter) Close() error {
	if err := t.writeHeader(); err != nil {
		return err
	}
	return t.bw.Flush()
}

func appendRow(b []byte, c *meth.Call) []byte {
	b = append(b, c.ReadName...)
	b = append(b, '\t')
	b = strconv.AppendInt(b, int64(c.Start), 10)
	b = append(b, '\t')
	b = strconv.AppendInt(b, int64(c.End), 10)
	b = append(b, '\t')
	b = strconv.AppendFloat(b, c.LogLikRatio, 'f', 2, 64)
	b = append(b, '\t')
	b = strconv.AppendFloat(b, c.LogLikMethylated, 'f', 2, 64)
	b = append(b, '\t')
	b = strconv.AppendFloat(b, c.LogLikUnmethylated, 'f', 2, 64)
	b = append(b, '\t')
	b = strconv.AppendInt(b, int64(c.NumMotifs), 10)
	b = append(b, '\t')
	b = append(b, c.Sequence...)
	return append(b, '\n')
}
