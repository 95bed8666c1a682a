package meth

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"methcall/internal/fasta"
	"methcall/internal/logsum"
)

var table = logsum.New()

func newCaller(t *testing.T, threads int) *Caller {
	t.Helper()
	c, err := New(table, Config{Threads: threads, ConversionRate: 0.99, DefaultQuality: 20, GroupWindow: 10})
	require.NoError(t, err)
	return c
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, Config{ConversionRate: 0.99})
	require.ErrorIs(t, err, ErrNoTable)

	_, err = New(table, Config{ConversionRate: 0})
	require.Error(t, err)
	_, err = New(table, Config{ConversionRate: 1.5})
	require.Error(t, err)
	_, err = New(table, Config{ConversionRate: 0.9, DefaultQuality: 100})
	require.Error(t, err)

	c, err := New(table, Config{ConversionRate: 0.9})
	require.NoError(t, err)
	require.Equal(t, 1, c.Threads())
}

func TestCallRead_NoSites(t *testing.T) {
	c := newCaller(t, 1)
	require.Nil(t, c.CallRead(fasta.Record{ID: "r", Seq: []byte("AAAATTTTAC")}))
	require.Nil(t, c.CallRead(fasta.Record{ID: "r", Seq: []byte("C")}))
}

func TestCallRead_SingleSite(t *testing.T) {
	c := newCaller(t, 1)
	e, conv := 0.01, 0.99
	wantMeth := math.Log(1 - e)
	wantUnmeth := math.Log((1-conv)*(1-e) + conv*e/3)

	calls := c.CallRead(fasta.Record{ID: "m", Seq: []byte("AACGAA")})
	require.Len(t, calls, 1)
	got := calls[0]
	assert.Equal(t, "m", got.ReadName)
	assert.Equal(t, 2, got.Start)
	assert.Equal(t, 2, got.End)
	assert.Equal(t, 1, got.NumMotifs)
	assert.InDelta(t, wantMeth, got.LogLikMethylated, 1e-3)
	assert.InDelta(t, wantUnmeth, got.LogLikUnmethylated, 1e-3)
	assert.InDelta(t, got.LogLikMethylated-got.LogLikUnmethylated, got.LogLikRatio, 1e-12)
	assert.Greater(t, got.LogLikRatio, 0.0, "a retained C supports methylation")
	assert.Equal(t, "AACGAA", got.Sequence)

	converted := c.CallRead(fasta.Record{ID: "u", Seq: []byte("AATGAA")})
	require.Len(t, converted, 1)
	assert.Less(t, converted[0].LogLikRatio, 0.0, "a converted C supports no methylation")
}

func TestCallRead_Grouping(t *testing.T) {
	c := newCaller(t, 1)
	seq := "ACGAAACGAA" + strings.Repeat("A", 14) + "CG"
	calls := c.CallRead(fasta.Record{ID: "g", Seq: []byte(seq)})
	require.Len(t, calls, 2)

	assert.Equal(t, 1, calls[0].Start)
	assert.Equal(t, 6, calls[0].End)
	assert.Equal(t, 2, calls[0].NumMotifs)
	assert.Equal(t, seq[0:13], calls[0].Sequence)

	assert.Equal(t, 24, calls[1].Start)
	assert.Equal(t, 1, calls[1].NumMotifs)
	assert.Equal(t, seq[19:], calls[1].Sequence)

	single := c.CallRead(fasta.Record{Seq: []byte("ACGAA")})[0]
	assert.InDelta(t, 2*single.LogLikMethylated, calls[0].LogLikMethylated, 1e-9)
}

func TestCallRead_QualityWeighsEvidence(t *testing.T) {
	c := newCaller(t, 1)
	hi := c.CallRead(fasta.Record{Seq: []byte("CG"), Qual: []byte("II")})[0]
	lo := c.CallRead(fasta.Record{Seq: []byte("CG"), Qual: []byte("##")})[0]
	zero := c.CallRead(fasta.Record{Seq: []byte("CG"), Qual: []byte("!!")})[0]

	assert.Greater(t, hi.LogLikRatio, lo.LogLikRatio)
	assert.False(t, math.IsInf(zero.LogLikMethylated, 0))
	assert.False(t, math.IsNaN(zero.LogLikRatio))
}

func TestCallBatch_PreservesOrder(t *testing.T) {
	c := newCaller(t, 3)
	recs := make([]fasta.Record, 101)
	for i := range recs {
		recs[i] = fasta.Record{
			ID:  fmt.Sprintf("r%d", i),
			Seq: []byte(strings.Repeat("A", i%7) + "CGTTG" + strings.Repeat("C", i%3) + "G"),
		}
	}
	out := make([][]Call, len(recs))
	require.NoError(t, c.CallBatch(context.Background(), recs, out))
	for i, rec := range recs {
		require.Equal(t, c.CallRead(rec), out[i], "read %d", i)
	}
}

func TestCallBatch_Errors(t *testing.T) {
	c := newCaller(t, 2)
	recs := []fasta.Record{{ID: "a", Seq: []byte("CG")}}

	require.Error(t, c.CallBatch(context.Background(), recs, nil))
	require.NoError(t, c.CallBatch(context.Background(), nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.CallBatch(ctx, recs, make([][]Call, 1))
	require.ErrorIs(t, err, context.Canceled)
}
