//go:build linux || darwin

package integration

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"methcall/internal/app"
)

func TestCtrlC_MidRun_Exit130(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "reads.fq")
	if err := syscall.Mkfifo(fifo, 0o600); err != nil {
		t.Skipf("mkfifo: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The input cannot end before the cancel: the writer holds the pipe open
	// until after it, so the reader must observe the canceled context.
	done := make(chan struct{})
	go func() {
		defer close(done)
		w, err := os.OpenFile(fifo, os.O_WRONLY, 0)
		if err != nil {
			return
		}
		defer w.Close()
		_, _ = io.WriteString(w, reads(0, 5))
		cancel()
		_, _ = io.WriteString(w, reads(5, 5))
	}()

	code := app.RunContext(ctx, []string{"-r", fifo, "-K", "2", "-v", "0"}, io.Discard, io.Discard)
	<-done
	if code != 130 {
		t.Fatalf("expected exit 130 on cancel, got %d", code)
	}
}
