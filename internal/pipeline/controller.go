package pipeline

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"methcall/internal/telemetry"
)

// Controller runs the stages interleaved: load on the calling goroutine, one
// background process task and one background emit task, each stage busy with
// a different batch.
type Controller[T, R any] struct {
	cfg    Config
	stages Stages[T, R]
	env    env
}

// NewController returns a Controller for stages.
func NewController[T, R any](cfg Config, stages Stages[T, R], opts ...Option) (*Controller[T, R], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller[T, R]{cfg: cfg, stages: stages, env: newEnv(opts)}, nil
}

// unit is the ownership record handed from the controller to the two
// background tasks of one batch. The emit task is its last owner and
// releases it.
type unit[T, R any] struct {
	batch *Batch[T, R]
	hs    *Handshake
}

// interleavedRun is the state of one Controller.Run call.
type interleavedRun struct {
	errs       firstError
	emitFailed atomic.Bool
	emitted    int // written only by emit tasks, which never overlap
}

// Run loads batches until a short load, keeping at most one process task
// and one emit task in flight. Before it returns, every launched task has
// finished and every batch has been released.
//
// The first stage error stops further batches from being launched; batches
// already in flight are drained. Emission stops at the first failed batch,
// so what was written is always a prefix of the input.
func (c *Controller[T, R]) Run(ctx context.Context) (Summary, error) {
	ctx, span := c.env.tracer.Start(ctx, "pipeline.interleaved")
	defer span.End()

	var (
		st       interleavedRun
		sum      Summary
		procDone <-chan struct{} // previous process task; nil before the first launch
		emitDone <-chan struct{} // previous emit task; nil before the first launch
	)

	// A short load ends the input.
	for seq, more := 0, true; more; seq++ {
		if st.errs.get() != nil {
			break
		}

		b := allocBatch[T, R](&c.env, seq, c.cfg.BatchSize)
		n, err := load(ctx, &c.env, c.stages, b)
		if err != nil {
			st.errs.set(err)
			releaseBatch(&c.env, b)
			break
		}
		c.env.progress("entries loaded", seq, n)
		more = b.Full()
		if n == 0 {
			// Input ended exactly on a batch boundary.
			releaseBatch(&c.env, b)
			break
		}

		if procDone != nil {
			<-procDone
			c.env.log.Debug("joined process task", zap.Int("batch", seq-1))
		}
		if st.errs.get() != nil {
			// The previous batch failed to process; this one never reaches a task.
			releaseBatch(&c.env, b)
			break
		}
		sum.Batches++
		sum.Records += n

		u := &unit[T, R]{batch: b, hs: NewHandshake()}
		procDone = c.spawnProcess(ctx, &st, u)
		c.env.log.Debug("spawned process task", zap.Int("batch", seq))

		if emitDone != nil {
			<-emitDone
			c.env.log.Debug("joined emit task", zap.Int("batch", seq-1))
		}
		emitDone = c.spawnEmit(ctx, &st, u)
		c.env.log.Debug("spawned emit task", zap.Int("batch", seq))

		if c.cfg.DebugBreak {
			break
		}
	}

	if procDone != nil {
		<-procDone
		c.env.log.Debug("joined last process task")
	}
	if emitDone != nil {
		<-emitDone
		c.env.log.Debug("joined last emit task")
	}

	sum.Emitted = st.emitted
	err := st.errs.get()
	if err != nil {
		telemetry.TraceError(span, err)
	}
	return sum, err
}

// spawnProcess launches the process task for u. The returned channel is
// closed when the task has finished, after the handshake was signalled.
func (c *Controller[T, R]) spawnProcess(ctx context.Context, st *interleavedRun, u *unit[T, R]) <-chan struct{} {
	done := make(chan struct{})
	b, seq := u.batch, u.batch.Seq
	go func() {
		defer close(done)

		_, err := c.env.call(ctx, StageProcess, b.Seq, func(ctx context.Context) (int, error) {
			return b.Len(), c.stages.Process(ctx, b)
		})
		if err == nil {
			c.env.progress("entries processed", b.Seq, b.Len())
		}
		st.errs.set(err)

		// Always signal, or the paired emit task blocks forever.
		u.hs.Signal(err)
		// b now belongs to the emit task.
		c.env.log.Debug("signal sent", zap.Int("batch", seq))
	}()
	return done
}

// spawnEmit launches the emit task for u. It waits for the process task's
// signal, emits unless this batch or an earlier emit failed, then releases
// the batch.
func (c *Controller[T, R]) spawnEmit(ctx context.Context, st *interleavedRun, u *unit[T, R]) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		b := u.batch
		defer releaseBatch(&c.env, b)

		c.env.log.Debug("waiting for signal", zap.Int("batch", b.Seq), zap.Bool("signalled", u.hs.Done()))
		perr := u.hs.Wait()
		c.env.log.Debug("signal received", zap.Int("batch", b.Seq))
		if perr != nil || st.emitFailed.Load() {
			c.env.log.Debug("skipping emit", zap.Int("batch", b.Seq))
			return
		}

		n, err := c.env.call(ctx, StageEmit, b.Seq, func(ctx context.Context) (int, error) {
			return b.Len(), c.stages.Emit(ctx, b)
		})
		if err != nil {
			st.emitFailed.Store(true)
			st.errs.set(err)
			return
		}
		st.emitted += n
	}()
	return done
}
