// internal/writers/jsonl.go
package writers

import (
	"io"

	"methcall/internal/jsonlutil"
	"methcall/internal/meth"
	"methcall/pkg/api"
)

func init() {
	Register("jsonl", func(w io.Writer, _ bool) Writer {
		return &jsonlWriter{enc: jsonlutil.New(w)}
	})
}

// jsonlWriter streams each call as one JSON line (v1). JSONL has no header.
type jsonlWriter struct {
	enc *jsonlutil.Encoder
}

func (j *jsonlWriter) WriteBatch(calls [][]meth.Call) error {
	for _, read := range calls {
		for i := range read {
			if err := j.enc.Encode(ToAPICall(read[i])); err != nil {
				return err
			}
		}
	}
	return j.enc.Flush()
}

func (j *jsonlWriter) Close() error { return j.enc.Close() }

// ToAPICall converts a call to its wire form.
func ToAPICall(c meth.Call) api.CallV1 {
	return api.CallV1{
		ReadName:           c.ReadName,
		Start:              c.Start,
		End:                c.End,
		LogLikRatio:        c.LogLikRatio,
		LogLikMethylated:   c.LogLikMethylated,
		LogLikUnmethylated: c.LogLikUnmethylated,
		NumMotifs:          c.NumMotifs,
		Sequence:           c.Sequence,
	}
}
