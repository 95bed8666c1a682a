// Package clock reports wall and CPU time for progress diagnostics.
package clock

import (
	"time"

	"github.com/prometheus/procfs"
)

// Clock measures elapsed wall time from a fixed start and the process CPU
// time consumed so far.
type Clock struct {
	start time.Time
	now   func() time.Time
	cpu   func() (float64, error)
}

// New starts a clock at the current instant.
func New() *Clock {
	return &Clock{start: time.Now(), now: time.Now, cpu: processCPU}
}

// Start returns the instant the clock was started.
func (c *Clock) Start() time.Time { return c.start }

// Elapsed returns wall seconds since Start.
func (c *Clock) Elapsed() float64 {
	return c.now().Sub(c.start).Seconds()
}

// CPUSeconds returns user+system CPU seconds of this process, or 0 when
// /proc is unavailable.
func (c *Clock) CPUSeconds() float64 {
	s, err := c.cpu()
	if err != nil {
		return 0
	}
	return s
}

// CPURatio is CPU seconds divided by wall seconds (roughly the number of
// busy cores). It is 0 before any wall time has passed.
func (c *Clock) CPURatio() float64 {
	wall := c.Elapsed()
	if wall <= 0 {
		return 0
	}
	return c.CPUSeconds() / wall
}

func processCPU() (float64, error) {
	p, err := procfs.Self()
	if err != nil {
		return 0, err
	}
	st, err := p.Stat()
	if err != nil {
		return 0, err
	}
	return st.CPUTime(), nil
}
