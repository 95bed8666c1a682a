// internal/writers/brokenpipe.go
package writers

import (
	"errors"
	"io"
	"syscall"
)

var closedPipeErrs = []error{syscall.EPIPE, io.ErrClosedPipe}

// IsBrokenPipe reports whether err means the consumer of our output went
// away, e.g. `methcall -r reads.fq | head`. Such a run ends cleanly.
func IsBrokenPipe(err error) bool {
	for _, target := range closedPipeErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
