package meth

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"methcall/internal/fasta"
	"methcall/internal/logsum"
)

const (
	phredOffset = 33
	maxPhred    = 93
	// flank is the number of bases reported on each side of a call.
	flank = 5
	// maxErr caps the per-base error probability at a uniformly random base.
	maxErr = 0.75
)

var ErrNoTable = errors.New("meth: caller has no log-sum table")

// Config holds the model parameters.
type Config struct {
	Threads        int
	ConversionRate float64
	DefaultQuality int
	GroupWindow    int
}

// Call is one grouped methylation call on a read.
type Call struct {
	ReadName string
	// Start and End are the 0-based positions of the first and last CpG in
	// the group.
	Start, End         int
	LogLikRatio        float64
	LogLikMethylated   float64
	LogLikUnmethylated float64
	NumMotifs          int
	Sequence           string
}

// siteLik is the log-likelihood of the observed base at one site.
type siteLik struct {
	methC, methT     float64
	unmethC, unmethT float64
}

// Caller scores reads. It is read-only after New and safe for concurrent use.
type Caller struct {
	cfg   Config
	table *logsum.Table
	byQ   [maxPhred + 1]siteLik
}

// New precomputes the per-quality site likelihoods.
func New(table *logsum.Table, cfg Config) (*Caller, error) {
	if table == nil {
		return nil, ErrNoTable
	}
	if cfg.ConversionRate <= 0 || cfg.ConversionRate > 1 {
		return nil, fmt.Errorf("meth: conversion rate %g out of (0,1]", cfg.ConversionRate)
	}
	if cfg.DefaultQuality < 0 || cfg.DefaultQuality > maxPhred {
		return nil, fmt.Errorf("meth: default quality %d out of [0,%d]", cfg.DefaultQuality, maxPhred)
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	c := &Caller{cfg: cfg, table: table}

	conv := cfg.ConversionRate
	logConv, logKeep := math.Log(conv), math.Log1p(-conv)
	for q := range c.byQ {
		e := math.Min(math.Pow(10, -float64(q)/10), maxErr)
		right, wrong := math.Log1p(-e), math.Log(e/3)
		c.byQ[q] = siteLik{
			methC:   right,
			methT:   wrong,
			unmethC: table.SumAll(logKeep+right, logConv+wrong),
			unmethT: table.SumAll(logConv+right, logKeep+wrong),
		}
	}
	return c, nil
}

// Threads is the fan-out used by CallBatch.
func (c *Caller) Threads() int { return c.cfg.Threads }

func (c *Caller) quality(rec *fasta.Record, i int) int {
	if rec.Qual == nil {
		return c.cfg.DefaultQuality
	}
	q := int(rec.Qual[i]) - phredOffset
	return max(0, min(q, maxPhred))
}

// CallRead returns the grouped calls for one read, in position order. A read
// without candidate sites yields nil.
func (c *Caller) CallRead(rec fasta.Record) []Call {
	seq := rec.Seq
	var (
		out  []Call
		cur  *Call
		prev = -1
	)
	for i := 0; i+1 < len(seq); i++ {
		if seq[i+1] != 'G' || (seq[i] != 'C' && seq[i] != 'T') {
			continue
		}
		lik := c.byQ[c.quality(&rec, i)]
		lm, lu := lik.methT, lik.unmethT
		if seq[i] == 'C' {
			lm, lu = lik.methC, lik.unmethC
		}

		if cur == nil || i-prev > c.cfg.GroupWindow {
			out = append(out, Call{ReadName: rec.ID, Start: i})
			cur = &out[len(out)-1]
		}
		cur.End = i
		cur.NumMotifs++
		cur.LogLikMethylated += lm
		cur.LogLikUnmethylated += lu
		prev = i
	}

	for i := range out {
		call := &out[i]
		call.LogLikRatio = call.LogLikMethylated - call.LogLikUnmethylated
		lo := max(0, call.Start-flank)
		hi := min(len(seq), call.End+2+flank)
		call.Sequence = string(seq[lo:hi])
	}
	return out
}

// CallBatch calls every read in recs and stores the result for recs[i] in
// out[i]. Reads are spread over Threads goroutines; out keeps record order.
func (c *Caller) CallBatch(ctx context.Context, recs []fasta.Record, out [][]Call) error {
	if len(out) != len(recs) {
		return fmt.Errorf("meth: %d result slots for %d reads", len(out), len(recs))
	}
	if len(recs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Threads)

	chunk := max(1, (len(recs)+c.cfg.Threads*4-1)/(c.cfg.Threads*4))
	for lo := 0; lo < len(recs); lo += chunk {
		hi := min(lo+chunk, len(recs))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = c.CallRead(recs[i])
			}
			return nil
		})
	}
	return g.Wait()
}
