package pipeline

import "sync"

// Handshake pairs the process task of one batch with its emit task.
//
// The process task calls Signal exactly once; the emit task calls Wait
// exactly once. Wait checks the done predicate under the mutex, so a signal
// that fires before the waiter arrives is never lost. The mutex guards the
// signal only, not the batch: ownership passes to the emit task through the
// happens-before edge the signal establishes.
type Handshake struct {
	mu     sync.Mutex
	cond   *sync.Cond
	done   bool
	waited bool
	err    error
}

// NewHandshake returns a handshake for a single batch. Handshakes are never
// reused.
func NewHandshake() *Handshake {
	h := &Handshake{}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Signal marks the process stage finished with err (nil on success).
// Signalling twice panics.
func (h *Handshake) Signal(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done {
		panic("pipeline: handshake signalled twice")
	}
	h.done = true
	h.err = err
	h.cond.Broadcast()
}

// Wait blocks until Signal has been called and returns the process error.
// Waiting twice panics.
func (h *Handshake) Wait() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.waited {
		panic("pipeline: handshake waited on twice")
	}
	h.waited = true
	for !h.done {
		h.cond.Wait()
	}
	return h.err
}

// Done reports whether Signal has been called.
func (h *Handshake) Done() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}
