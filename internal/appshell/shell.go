package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Main runs run with a context canceled by SIGINT or SIGTERM and exits with
// its code. A run interrupted by a signal always exits 130.
func Main(run func(context.Context, []string, io.Writer, io.Writer) int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	argv := os.Args[1:]
	if len(argv) == 0 {
		argv = []string{"--help"}
	}

	code := normalize(ctx, run(ctx, argv, os.Stdout, os.Stderr))

	stop()
	os.Exit(code)
}

// normalize maps any outcome of a canceled run to 130.
func normalize(ctx context.Context, code int) int {
	if ctx.Err() != nil && code != 130 {
		return 130
	}
	return code
}
