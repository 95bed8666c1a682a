// Package config holds the run configuration and its startup validation.
//
// A Config is immutable once the pipeline starts; every stage reads it
// through the analysis core.
package config

import (
	"fmt"
	"runtime"
)

// Output formats.
const (
	OutputTSV   = "tsv"
	OutputJSONL = "jsonl"
)

// Config is the complete run configuration.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Input    InputConfig    `mapstructure:"input"`
	Caller   CallerConfig   `mapstructure:"caller"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Trace    TraceConfig    `mapstructure:"trace"`
}

// PipelineConfig controls the batch scheduler.
type PipelineConfig struct {
	BatchSize  int  `mapstructure:"batchsize"`  // reads loaded at once
	Threads    int  `mapstructure:"threads"`    // compute goroutines inside the process stage
	Verbosity  int  `mapstructure:"verbose"`    // diagnostics only, never control flow
	Interleave bool `mapstructure:"interleave"` // overlap load/process/emit across batches
	DebugBreak bool `mapstructure:"debugbreak"` // stop after the first batch
}

// InputConfig describes the read source.
type InputConfig struct {
	Reads         string `mapstructure:"reads"`         // FASTA/FASTQ path, optionally .gz/.zst, or "-"
	SkipMalformed bool   `mapstructure:"skipmalformed"` // skip malformed records instead of failing
}

// CallerConfig parameterizes the reference methylation caller.
type CallerConfig struct {
	ConversionRate float64 `mapstructure:"conversionrate"` // bisulfite conversion efficiency
	DefaultQuality int     `mapstructure:"defaultquality"` // phred used when reads carry no qualities
	GroupWindow    int     `mapstructure:"groupwindow"`    // CpGs closer than this are called together
}

// OutputConfig describes the result sink.
type OutputConfig struct {
	Path   string `mapstructure:"path"` // "-" for stdout
	Format string `mapstructure:"format"`
	Header bool   `mapstructure:"header"`
}

// LogConfig controls diagnostics. An empty Level derives one from verbosity.
type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

// MetricsConfig controls the prometheus textfile written at exit.
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// TraceConfig controls OTLP tracing; an empty Endpoint disables export.
type TraceConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sampleratio"`
}

// Default returns the defaults used when neither flags, environment nor a
// config file say otherwise.
func Default() Config {
	threads := 8
	if n := runtime.NumCPU(); n < threads {
		threads = n
	}
	return Config{
		Pipeline: PipelineConfig{
			BatchSize:  512,
			Threads:    threads,
			Verbosity:  1,
			Interleave: true,
		},
		Input: InputConfig{
			Reads:         "",
			SkipMalformed: true,
		},
		Caller: CallerConfig{
			ConversionRate: 0.99,
			DefaultQuality: 20,
			GroupWindow:    10,
		},
		Output: OutputConfig{
			Path:   "-",
			Format: OutputTSV,
			Header: true,
		},
		Log: LogConfig{
			Format: "text",
		},
		Trace: TraceConfig{
			SampleRatio: 1,
		},
	}
}

// Error reports an invalid configuration value.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg) }

// Validate checks the configuration before any batch is loaded.
func (c Config) Validate() error {
	switch {
	case c.Pipeline.BatchSize < 1:
		return &Error{"batchsize", fmt.Sprintf("batch size should be larger than 0, got %d", c.Pipeline.BatchSize)}
	case c.Pipeline.Threads < 1:
		return &Error{"threads", fmt.Sprintf("number of threads should be larger than 0, got %d", c.Pipeline.Threads)}
	case c.Input.Reads == "":
		return &Error{"reads", "a read file is required"}
	case c.Caller.ConversionRate <= 0 || c.Caller.ConversionRate >= 1:
		return &Error{"conversion-rate", fmt.Sprintf("must be in (0, 1), got %g", c.Caller.ConversionRate)}
	case c.Caller.DefaultQuality < 1:
		return &Error{"default-quality", fmt.Sprintf("must be at least 1, got %d", c.Caller.DefaultQuality)}
	case c.Caller.GroupWindow < 0:
		return &Error{"group-window", fmt.Sprintf("must be at least 0, got %d", c.Caller.GroupWindow)}
	case c.Output.Format != OutputTSV && c.Output.Format != OutputJSONL:
		return &Error{"output-format", fmt.Sprintf("unknown format %q", c.Output.Format)}
	case c.Log.Format != "text" && c.Log.Format != "json":
		return &Error{"log-format", fmt.Sprintf("unknown format %q", c.Log.Format)}
	case c.Trace.SampleRatio < 0 || c.Trace.SampleRatio > 1:
		return &Error{"trace-sample-ratio", fmt.Sprintf("must be in [0, 1], got %g", c.Trace.SampleRatio)}
	}
	return nil
}
