package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidBatchSize is returned for a non-positive batch capacity.
	ErrInvalidBatchSize = errors.New("batch size should be larger than 0")
	// ErrLoadCount is returned when a load reports an impossible record count.
	ErrLoadCount = errors.New("inconsistent load count")
	// ErrStagePanic wraps a panic recovered from a stage.
	ErrStagePanic = errors.New("stage panicked")
)

// Stage names one of the three pipeline stages.
type Stage string

const (
	StageLoad    Stage = "load"
	StageProcess Stage = "process"
	StageEmit    Stage = "emit"
)

// Stages is the contract between the runners and the collaborators that do
// the actual work. All three calls block; a runner only requires that they
// return.
type Stages[T, R any] interface {
	// Load appends up to b.Cap() records to b.Records and returns how many it
	// appended. A count below capacity means the input is exhausted. Each
	// call advances a shared input cursor.
	Load(ctx context.Context, b *Batch[T, R]) (int, error)
	// Process reads b.Records and fills b.Results. It may take arbitrarily
	// long and must not keep b after returning.
	Process(ctx context.Context, b *Batch[T, R]) error
	// Emit writes b.Results in record order. The batch is released as soon
	// as Emit returns.
	Emit(ctx context.Context, b *Batch[T, R]) error
}

// StageFuncs adapts three functions to Stages.
type StageFuncs[T, R any] struct {
	LoadFunc    func(context.Context, *Batch[T, R]) (int, error)
	ProcessFunc func(context.Context, *Batch[T, R]) error
	EmitFunc    func(context.Context, *Batch[T, R]) error
}

func (f StageFuncs[T, R]) Load(ctx context.Context, b *Batch[T, R]) (int, error) {
	return f.LoadFunc(ctx, b)
}

func (f StageFuncs[T, R]) Process(ctx context.Context, b *Batch[T, R]) error {
	return f.ProcessFunc(ctx, b)
}

func (f StageFuncs[T, R]) Emit(ctx context.Context, b *Batch[T, R]) error {
	return f.EmitFunc(ctx, b)
}

// StageError reports which stage failed on which batch.
type StageError struct {
	Stage Stage
	Batch int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s batch %d: %v", e.Stage, e.Batch, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Observer receives lifecycle events from a runner. Implementations must be
// safe for concurrent use: process and emit events arrive from background
// goroutines.
type Observer interface {
	BatchAllocated(seq int)
	BatchReleased(seq int)
	StageStarted(stage Stage, seq int)
	StageFinished(stage Stage, seq int, records int, d time.Duration, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) BatchAllocated(int)                                  {}
func (NopObserver) BatchReleased(int)                                   {}
func (NopObserver) StageStarted(Stage, int)                             {}
func (NopObserver) StageFinished(Stage, int, int, time.Duration, error) {}
