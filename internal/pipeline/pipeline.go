// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"methcall/internal/clock"
	"methcall/internal/telemetry"
)

// Config controls batch scheduling.
type Config struct {
	BatchSize  int  // maximum records per batch (>=1)
	Interleave bool // overlap load/process/emit across batches
	DebugBreak bool // stop after the first batch
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, c.BatchSize)
	}
	return nil
}

// Summary counts what a run did.
type Summary struct {
	Batches int // non-empty batches handed to the process stage
	Records int // records loaded into those batches
	Emitted int // records whose batch was emitted successfully
}

// Option customizes a runner.
type Option func(*env)

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *env) { e.log = l }
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) Option {
	return func(e *env) { e.obs = o }
}

// WithTracer sets the tracer used for per-stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *env) { e.tracer = t }
}

// WithClock sets the clock used for elapsed/CPU figures in progress lines.
func WithClock(c *clock.Clock) Option {
	return func(e *env) { e.clock = c }
}

// Run validates cfg and executes stages with the Controller when
// cfg.Interleave is set, or with the SerialRunner otherwise.
func Run[T, R any](ctx context.Context, cfg Config, stages Stages[T, R], opts ...Option) (Summary, error) {
	if cfg.Interleave {
		c, err := NewController(cfg, stages, opts...)
		if err != nil {
			return Summary{}, err
		}
		return c.Run(ctx)
	}
	s, err := NewSerialRunner(cfg, stages, opts...)
	if err != nil {
		return Summary{}, err
	}
	return s.Run(ctx)
}

// env is the plumbing shared by both runners.
type env struct {
	log    *zap.Logger
	obs    Observer
	tracer trace.Tracer
	clock  *clock.Clock
}

func newEnv(opts []Option) env {
	e := env{
		log:    zap.NewNop(),
		obs:    NopObserver{},
		tracer: otel.Tracer("methcall/internal/pipeline"),
	}
	for _, o := range opts {
		o(&e)
	}
	if e.clock == nil {
		e.clock = clock.New()
	}
	return e
}

func (e *env) progress(msg string, seq, n int) {
	e.log.Info(msg,
		zap.Int("batch", seq),
		zap.Int("entries", n),
		zap.Float64("elapsed_s", e.clock.Elapsed()),
		zap.Float64("cpu_ratio", e.clock.CPURatio()),
	)
}

// call runs one stage invocation: it opens a span, notifies the observer,
// recovers a panic into an error and wraps any failure in a StageError.
func (e *env) call(ctx context.Context, stage Stage, seq int, fn func(context.Context) (int, error)) (int, error) {
	ctx, span := e.tracer.Start(ctx, "pipeline."+string(stage),
		trace.WithAttributes(attribute.Int("batch.seq", seq)))
	defer span.End()

	e.obs.StageStarted(stage, seq)
	start := time.Now()

	var (
		n   int
		err error
	)
	if r := panics.Try(func() { n, err = fn(ctx) }); r != nil {
		err = fmt.Errorf("%w: %w", ErrStagePanic, r.AsError())
	}
	if err != nil {
		err = &StageError{Stage: stage, Batch: seq, Err: err}
		telemetry.TraceError(span, err)
	}
	span.SetAttributes(attribute.Int("batch.records", n))

	e.obs.StageFinished(stage, seq, n, time.Since(start), err)
	return n, err
}

func allocBatch[T, R any](e *env, seq, capacity int) *Batch[T, R] {
	b := newBatch[T, R](seq, capacity)
	e.obs.BatchAllocated(seq)
	return b
}

func releaseBatch[T, R any](e *env, b *Batch[T, R]) {
	b.release()
	e.obs.BatchReleased(b.Seq)
}

// load runs the load stage on b and seals the returned count.
func load[T, R any](ctx context.Context, e *env, stages Stages[T, R], b *Batch[T, R]) (int, error) {
	return e.call(ctx, StageLoad, b.Seq, func(ctx context.Context) (int, error) {
		n, err := stages.Load(ctx, b)
		if err != nil {
			return n, err
		}
		if err := b.seal(n); err != nil {
			return n, err
		}
		return n, nil
	})
}

// firstError keeps the first error reported by any task.
type firstError struct {
	mu  sync.Mutex
	err error
}

func (f *firstError) set(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
