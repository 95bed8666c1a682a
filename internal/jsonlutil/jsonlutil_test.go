package jsonlutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	A int    `json:"a"`
	B string `json:"b,omitempty"`
}

func TestEncoder_OneValuePerLine(t *testing.T) {
	var buf bytes.Buffer
	enc := New(&buf)
	require.NoError(t, enc.Encode(row{A: 1, B: "x"}))
	require.NoError(t, enc.Encode(row{A: 2}))
	require.Empty(t, buf.String(), "output stays buffered until flushed")
	require.NoError(t, enc.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"a":1,"b":"x"}`, lines[0])
	require.JSONEq(t, `{"a":2}`, lines[1])
	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close())
}
