// internal/app/run.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"methcall/internal/analysis"
	"methcall/internal/clock"
	"methcall/internal/config"
	"methcall/internal/fasta"
	"methcall/internal/logger"
	"methcall/internal/meth"
	"methcall/internal/metrics"
	"methcall/internal/pipeline"
	"methcall/internal/telemetry"
)

// stdin backs "-r -"; tests replace it.
var stdin io.Reader = os.Stdin

const shutdownTimeout = 5 * time.Second

// execute runs one validated configuration end to end.
func execute(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	level := cfg.Log.Level
	if level == "" {
		level = logger.LevelForVerbosity(cfg.Pipeline.Verbosity)
	}
	log, err := logger.New(stderr, cfg.Log.Format, level)
	if err != nil {
		return &config.Error{Field: "log-level", Msg: err.Error()}
	}
	defer func() { _ = log.Sync() }()

	if cfg.Trace.Endpoint != "" {
		tp, terr := telemetry.NewTracerProvider(ctx,
			telemetry.WithOTLPEndpoint(cfg.Trace.Endpoint),
			telemetry.WithSamplingRatio(cfg.Trace.SampleRatio),
		)
		if terr != nil {
			return terr
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if serr := tp.Shutdown(sctx); serr != nil {
				log.Warn("tracer shutdown failed", zap.Error(serr))
			}
		}()
	}

	clk := clock.New()
	rec := metrics.New()

	core, err := analysis.Init(ctx, analysis.Options{
		Reads:         cfg.Input.Reads,
		SkipMalformed: cfg.Input.SkipMalformed,
		Caller: meth.Config{
			Threads:        cfg.Pipeline.Threads,
			ConversionRate: cfg.Caller.ConversionRate,
			DefaultQuality: cfg.Caller.DefaultQuality,
			GroupWindow:    cfg.Caller.GroupWindow,
		},
		Output: cfg.Output.Path,
		Format: cfg.Output.Format,
		Header: cfg.Output.Header,
	}, stdin, stdout, log)
	if err != nil {
		return err
	}

	log.Info("starting run",
		zap.String("run_id", core.RunID.String()),
		zap.Int("batch_size", cfg.Pipeline.BatchSize),
		zap.Int("threads", cfg.Pipeline.Threads),
		zap.Bool("interleave", cfg.Pipeline.Interleave),
	)

	sum, runErr := pipeline.Run[fasta.Record, []meth.Call](ctx,
		pipeline.Config{
			BatchSize:  cfg.Pipeline.BatchSize,
			Interleave: cfg.Pipeline.Interleave,
			DebugBreak: cfg.Pipeline.DebugBreak,
		},
		core,
		pipeline.WithLogger(log),
		pipeline.WithObserver(rec),
		pipeline.WithClock(clk),
		pipeline.WithTracer(otel.Tracer("methcall/internal/pipeline")),
	)
	closeErr := core.Close()

	st := core.Stats()
	log.Info("run finished",
		zap.String("run_id", st.RunID),
		zap.Time("started", clk.Start()),
		zap.Int("batches", sum.Batches),
		zap.Int("records", sum.Records),
		zap.Int("emitted", sum.Emitted),
		zap.Int("skipped", st.Skipped),
		zap.Int("calls", st.Calls),
		zap.Float64("load_s", st.Load.Seconds()),
		zap.Float64("process_s", st.Process.Seconds()),
		zap.Float64("emit_s", st.Emit.Seconds()),
		zap.Float64("elapsed_s", clk.Elapsed()),
		zap.Float64("cpu_ratio", clk.CPURatio()),
	)
	if st.Skipped > 0 {
		log.Warn("skipped malformed records", zap.Int("skipped", st.Skipped))
	}

	var metricsErr error
	if cfg.Metrics.File != "" {
		if metricsErr = rec.WriteTextfile(cfg.Metrics.File); metricsErr != nil {
			metricsErr = fmt.Errorf("write metrics: %w", metricsErr)
		}
	}

	return errors.Join(runErr, closeErr, metricsErr)
}
