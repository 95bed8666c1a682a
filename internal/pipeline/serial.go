package pipeline

import (
	"context"

	"methcall/internal/telemetry"
)

// SerialRunner runs load, process and emit for one batch at a time on the
// calling goroutine. It is the easy-to-debug equivalent of Controller.
type SerialRunner[T, R any] struct {
	cfg    Config
	stages Stages[T, R]
	env    env
}

// NewSerialRunner returns a SerialRunner for stages.
func NewSerialRunner[T, R any](cfg Config, stages Stages[T, R], opts ...Option) (*SerialRunner[T, R], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SerialRunner[T, R]{cfg: cfg, stages: stages, env: newEnv(opts)}, nil
}

// Run processes batches until a short load, the first error, or the first
// batch when DebugBreak is set.
func (s *SerialRunner[T, R]) Run(ctx context.Context) (Summary, error) {
	ctx, span := s.env.tracer.Start(ctx, "pipeline.serial")
	defer span.End()

	var sum Summary
	for seq, more := 0, true; more; seq++ {
		var err error
		if more, err = s.step(ctx, seq, &sum); err != nil {
			telemetry.TraceError(span, err)
			return sum, err
		}
		if s.cfg.DebugBreak {
			break
		}
	}
	return sum, nil
}

// step runs one batch through all three stages and releases it. It reports
// whether the load filled the batch, so more input may follow.
func (s *SerialRunner[T, R]) step(ctx context.Context, seq int, sum *Summary) (bool, error) {
	b := allocBatch[T, R](&s.env, seq, s.cfg.BatchSize)
	defer releaseBatch(&s.env, b)

	n, err := load(ctx, &s.env, s.stages, b)
	if err != nil {
		return false, err
	}
	s.env.progress("entries loaded", seq, n)
	if n == 0 {
		return false, nil
	}
	sum.Batches++
	sum.Records += n

	if _, err := s.env.call(ctx, StageProcess, seq, func(ctx context.Context) (int, error) {
		return n, s.stages.Process(ctx, b)
	}); err != nil {
		return false, err
	}
	s.env.progress("entries processed", seq, n)

	if _, err := s.env.call(ctx, StageEmit, seq, func(ctx context.Context) (int, error) {
		return n, s.stages.Emit(ctx, b)
	}); err != nil {
		return false, err
	}
	sum.Emitted += n
	return b.Full(), nil
}
