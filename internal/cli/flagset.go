// internal/cli/flagset.go
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"methcall/internal/config"
)

// mustBindPFlag binds key to a cobra flag and panics if the binding fails.
func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

func mustBindEnv(v *viper.Viper, input ...string) {
	if err := v.BindEnv(input...); err != nil {
		panic("failed to bind env key: " + err.Error())
	}
}

// bindRunFlags declares the run flags and binds each to its config key and
// environment variable. Precedence is flag, environment, config file, default.
func bindRunFlags(command *cobra.Command, v *viper.Viper) {
	defaultConfig := config.Default()
	flags := command.Flags()

	flags.StringP("reads", "r", defaultConfig.Input.Reads, "FASTA/FASTQ read file, optionally gzip or zstd compressed ('-' for stdin)")
	mustBindPFlag(v, "input.reads", flags.Lookup("reads"))
	mustBindEnv(v, "input.reads", "METHCALL_READS")

	flags.Bool("skip-malformed", defaultConfig.Input.SkipMalformed, "skip malformed records instead of failing the run")
	mustBindPFlag(v, "input.skipmalformed", flags.Lookup("skip-malformed"))
	mustBindEnv(v, "input.skipmalformed", "METHCALL_SKIP_MALFORMED")

	flags.IntP("threads", "t", defaultConfig.Pipeline.Threads, "number of compute goroutines per batch")
	mustBindPFlag(v, "pipeline.threads", flags.Lookup("threads"))
	mustBindEnv(v, "pipeline.threads", "METHCALL_THREADS")

	flags.IntP("batchsize", "K", defaultConfig.Pipeline.BatchSize, "batch size (max number of reads loaded at once)")
	mustBindPFlag(v, "pipeline.batchsize", flags.Lookup("batchsize"))
	mustBindEnv(v, "pipeline.batchsize", "METHCALL_BATCHSIZE", "METHCALL_BATCH_SIZE")

	flags.IntP("verbose", "v", defaultConfig.Pipeline.Verbosity, "verbosity level (0 quiet, 1 progress, 2 scheduler trace)")
	mustBindPFlag(v, "pipeline.verbose", flags.Lookup("verbose"))
	mustBindEnv(v, "pipeline.verbose", "METHCALL_VERBOSE")

	flags.Bool("interleave", defaultConfig.Pipeline.Interleave, "overlap load, process and emit across batches")
	mustBindPFlag(v, "pipeline.interleave", flags.Lookup("interleave"))
	mustBindEnv(v, "pipeline.interleave", "METHCALL_INTERLEAVE")

	flags.Bool("debug-break", defaultConfig.Pipeline.DebugBreak, "stop after the first batch")
	mustBindPFlag(v, "pipeline.debugbreak", flags.Lookup("debug-break"))
	mustBindEnv(v, "pipeline.debugbreak", "METHCALL_DEBUG_BREAK")

	flags.Float64("conversion-rate", defaultConfig.Caller.ConversionRate, "bisulfite conversion rate of unmethylated cytosines")
	mustBindPFlag(v, "caller.conversionrate", flags.Lookup("conversion-rate"))
	mustBindEnv(v, "caller.conversionrate", "METHCALL_CONVERSION_RATE")

	flags.Int("default-quality", defaultConfig.Caller.DefaultQuality, "phred quality assumed for reads without qualities (FASTA)")
	mustBindPFlag(v, "caller.defaultquality", flags.Lookup("default-quality"))
	mustBindEnv(v, "caller.defaultquality", "METHCALL_DEFAULT_QUALITY")

	flags.Int("group-window", defaultConfig.Caller.GroupWindow, "CpG sites at most this many bases apart are called together")
	mustBindPFlag(v, "caller.groupwindow", flags.Lookup("group-window"))
	mustBindEnv(v, "caller.groupwindow", "METHCALL_GROUP_WINDOW")

	flags.StringP("output", "o", defaultConfig.Output.Path, "output file ('-' for stdout)")
	mustBindPFlag(v, "output.path", flags.Lookup("output"))
	mustBindEnv(v, "output.path", "METHCALL_OUTPUT")

	flags.String("output-format", defaultConfig.Output.Format, "output format: tsv | jsonl")
	mustBindPFlag(v, "output.format", flags.Lookup("output-format"))
	mustBindEnv(v, "output.format", "METHCALL_OUTPUT_FORMAT")

	flags.Bool("header", defaultConfig.Output.Header, "write a header line (tsv)")
	mustBindPFlag(v, "output.header", flags.Lookup("header"))
	mustBindEnv(v, "output.header", "METHCALL_HEADER")

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in: text | json")
	mustBindPFlag(v, "log.format", flags.Lookup("log-format"))
	mustBindEnv(v, "log.format", "METHCALL_LOG_FORMAT")

	flags.String("log-level", defaultConfig.Log.Level, "the log level to use (default derived from --verbose)")
	mustBindPFlag(v, "log.level", flags.Lookup("log-level"))
	mustBindEnv(v, "log.level", "METHCALL_LOG_LEVEL")

	flags.String("metrics-file", defaultConfig.Metrics.File, "write prometheus metrics to this textfile at exit")
	mustBindPFlag(v, "metrics.file", flags.Lookup("metrics-file"))
	mustBindEnv(v, "metrics.file", "METHCALL_METRICS_FILE")

	flags.String("trace-endpoint", defaultConfig.Trace.Endpoint, "OTLP/gRPC collector endpoint for traces (empty disables tracing)")
	mustBindPFlag(v, "trace.endpoint", flags.Lookup("trace-endpoint"))
	mustBindEnv(v, "trace.endpoint", "METHCALL_TRACE_ENDPOINT")

	flags.Float64("trace-sample-ratio", defaultConfig.Trace.SampleRatio, "the fraction of runs to trace")
	mustBindPFlag(v, "trace.sampleratio", flags.Lookup("trace-sample-ratio"))
	mustBindEnv(v, "trace.sampleratio", "METHCALL_TRACE_SAMPLE_RATIO")
}
