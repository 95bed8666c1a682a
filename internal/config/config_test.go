package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func valid() Config {
	c := Default()
	c.Input.Reads = "reads.fq"
	return c
}

func TestDefaultIsValidOnceReadsAreSet(t *testing.T) {
	require.NoError(t, valid().Validate())
	d := Default()
	require.Equal(t, 512, d.Pipeline.BatchSize)
	require.True(t, d.Pipeline.Interleave)
	require.False(t, d.Pipeline.DebugBreak)
	require.GreaterOrEqual(t, d.Pipeline.Threads, 1)
	require.LessOrEqual(t, d.Pipeline.Threads, 8)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"zero batch", func(c *Config) { c.Pipeline.BatchSize = 0 }, "batchsize"},
		{"negative batch", func(c *Config) { c.Pipeline.BatchSize = -3 }, "batchsize"},
		{"zero threads", func(c *Config) { c.Pipeline.Threads = 0 }, "threads"},
		{"no reads", func(c *Config) { c.Input.Reads = "" }, "reads"},
		{"conversion 1", func(c *Config) { c.Caller.ConversionRate = 1 }, "conversion-rate"},
		{"quality 0", func(c *Config) { c.Caller.DefaultQuality = 0 }, "default-quality"},
		{"group window", func(c *Config) { c.Caller.GroupWindow = -1 }, "group-window"},
		{"output format", func(c *Config) { c.Output.Format = "bam" }, "output-format"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log-format"},
		{"sample ratio", func(c *Config) { c.Trace.SampleRatio = 2 }, "trace-sample-ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mut(&c)
			err := c.Validate()
			var cerr *Error
			require.True(t, errors.As(err, &cerr), "got %v", err)
			require.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	c := valid()
	c.Pipeline.BatchSize = 0
	require.EqualError(t, c.Validate(), "invalid batchsize: batch size should be larger than 0, got 0")
}

func TestErrorMessage_GroupWindow(t *testing.T) {
	c := valid()
	c.Caller.GroupWindow = -2
	require.EqualError(t, c.Validate(), "invalid group-window: must be at least 0, got -2")
}
