// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"methcall/internal/cli"
	"methcall/internal/config"
	"methcall/internal/writers"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitUsage    = 2 // bad flags or configuration, reported before any batch
	ExitRuntime  = 3 // a stage failed
	ExitCanceled = 130
)

// RunContext parses argv, runs the pipeline and maps the outcome to an exit
// code. Results go to stdout (or --output); diagnostics go to stderr.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	cmd := cli.NewRootCommand(execute)
	cmd.SetArgs(argv)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(parent)
	code := exitCode(parent, err)
	switch code {
	case ExitOK, ExitCanceled:
	case ExitUsage:
		_, _ = fmt.Fprintf(stderr, "error: %v\nRun 'methcall --help' for usage.\n", err)
	default:
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return code
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func exitCode(ctx context.Context, err error) int {
	var (
		uerr *cli.UsageError
		cerr *config.Error
	)
	switch {
	case err == nil:
		return ExitOK
	case writers.IsBrokenPipe(err):
		// Downstream consumer (like `head`) closed early.
		return ExitOK
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return ExitCanceled
	case errors.As(err, &uerr) || errors.As(err, &cerr):
		return ExitUsage
	}
	return ExitRuntime
}
