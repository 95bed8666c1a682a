// internal/cli/options.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"methcall/internal/config"
	"methcall/internal/version"
)

// UsageError marks a command-line or configuration problem found before any
// batch ran.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// RunFunc executes a run with a validated configuration.
type RunFunc func(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error

// NewRootCommand returns the methcall command. Settings are read from flags,
// environment variables prefixed with METHCALL, or methcall.yaml (in that
// order). Each command gets its own viper instance.
func NewRootCommand(run RunFunc) *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "methcall",
		Short: "Call CpG methylation on bisulfite-converted reads",
		Long: `methcall calls CpG methylation on bisulfite-converted reads.

Reads are processed in batches: the next batch is loaded while the current
one is being called and the previous one is written out.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &UsageError{Err: err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Load(v, configFile)
			if err != nil {
				return &UsageError{Err: err}
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	cmd.SetVersionTemplate("methcall version {{.Version}}\n")

	cmd.Flags().StringVar(&configFile, "config", "", "config file (default: methcall.yaml in ., $HOME/.methcall, /etc/methcall)")
	bindRunFlags(cmd, v)

	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "methcall version %s\n", version.Version)
			return err
		},
	}
}

// Load reads the optional config file into v and returns the validated
// configuration. A missing default config file is not an error; a missing
// explicit one is.
func Load(v *viper.Viper, configFile string) (config.Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("methcall")
		v.SetConfigType("yaml")
		for _, path := range []string{".", "$HOME/.methcall", "/etc/methcall"} {
			v.AddConfigPath(path)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return config.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := config.Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
