// Package analysis holds the state shared by every batch of a run: the
// input reader, the caller and its log-sum table, the output writer and the
// sectional timing counters.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"methcall/internal/fasta"
	"methcall/internal/logsum"
	"methcall/internal/meth"
	"methcall/internal/pipeline"
	"methcall/internal/writers"
)

// Batch is the pipeline unit of a methylation run: one slot of calls per read.
type Batch = pipeline.Batch[fasta.Record, []meth.Call]

type Options struct {
	Reads         string // path or "-"
	SkipMalformed bool

	Caller meth.Config

	Output string // path or "-"
	Format string
	Header bool
}

// Stats is the sectional timing summary of a run.
type Stats struct {
	RunID   string
	Load    time.Duration
	Process time.Duration
	Emit    time.Duration
	Records int
	Skipped int
	Calls   int
}

// Core is the shared context of a run. It is created once before the first
// batch and is read-only afterwards, apart from the counter groups below.
type Core struct {
	RunID   uuid.UUID
	Started time.Time
	Table   *logsum.Table
	opts    Options
	log     *zap.Logger

	reader   *fasta.Reader
	caller   *meth.Caller
	writer   writers.Writer
	out      io.Writer
	closeOut func() error

	// Load group: written only by the goroutine running the load stage.
	loadTime time.Duration
	records  int
	// Process group: written only by the process task; tasks never overlap.
	processTime time.Duration
	// Emit group: written only by the emit task; tasks never overlap.
	emitTime time.Duration
	calls    int
}

var _ pipeline.Stages[fasta.Record, []meth.Call] = (*Core)(nil)

// Init opens the input and output and builds the caller. stdin and stdout
// back the "-" paths. On error nothing is left open.
func Init(ctx context.Context, o Options, stdin io.Reader, stdout io.Writer, log *zap.Logger) (*Core, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Core{
		RunID:   uuid.New(),
		Started: time.Now(),
		Table:   logsum.New(),
		opts:    o,
		log:     log,
	}

	caller, err := meth.New(c.Table, o.Caller)
	if err != nil {
		return nil, err
	}
	c.caller = caller

	if c.reader, err = fasta.Open(o.Reads, stdin); err != nil {
		return nil, fmt.Errorf("open reads: %w", err)
	}
	c.reader.SkipMalformed = o.SkipMalformed

	if o.Output == "" || o.Output == "-" {
		c.out, c.closeOut = stdout, func() error { return nil }
	} else {
		fh, err := os.Create(o.Output)
		if err != nil {
			_ = c.reader.Close()
			return nil, fmt.Errorf("create output: %w", err)
		}
		c.out, c.closeOut = fh, fh.Close
	}

	if c.writer, err = writers.New(o.Format, c.out, o.Header); err != nil {
		_ = c.reader.Close()
		_ = c.closeOut()
		return nil, err
	}

	log.Debug("core initialized",
		zap.String("run_id", c.RunID.String()),
		zap.String("reads", o.Reads),
		zap.String("output", o.Output),
		zap.String("format", o.Format),
		zap.Int("threads", caller.Threads()),
	)
	return c, nil
}

// Load fills b from the reader.
func (c *Core) Load(ctx context.Context, b *Batch) (int, error) {
	start := time.Now()
	defer func() { c.loadTime += time.Since(start) }()

	recs, err := c.reader.Fill(ctx, b.Records, b.Cap())
	b.Records = recs
	c.records += len(recs)
	return len(recs), err
}

// Process calls methylation on every read of b.
func (c *Core) Process(ctx context.Context, b *Batch) error {
	start := time.Now()
	defer func() { c.processTime += time.Since(start) }()

	return c.caller.CallBatch(ctx, b.Records, b.Results)
}

// Emit writes the calls of b in read order.
func (c *Core) Emit(_ context.Context, b *Batch) error {
	start := time.Now()
	defer func() { c.emitTime += time.Since(start) }()

	if err := c.writer.WriteBatch(b.Results); err != nil {
		return err
	}
	for _, calls := range b.Results {
		c.calls += len(calls)
	}
	return nil
}

// Stats returns the counters. Call it only after the pipeline has returned.
func (c *Core) Stats() Stats {
	return Stats{
		RunID:   c.RunID.String(),
		Load:    c.loadTime,
		Process: c.processTime,
		Emit:    c.emitTime,
		Records: c.records,
		Skipped: c.reader.Skipped(),
		Calls:   c.calls,
	}
}

// Close flushes the writer and closes what Init opened.
func (c *Core) Close() error {
	return errors.Join(c.writer.Close(), c.closeOut(), c.reader.Close())
}
