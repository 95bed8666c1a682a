package pipeline

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type scratch struct{ processed bool }

// source is an in-memory input of n integers with a shared cursor.
type source struct {
	mu     sync.Mutex
	input  []int
	cursor int

	outMu sync.Mutex
	out   []int
	sizes []int

	jitter    bool
	violation atomic.Value // string
}

func newSource(n int) *source {
	s := &source{input: make([]int, n)}
	for i := range s.input {
		s.input[i] = i
	}
	return s
}

func (s *source) sleep() {
	if s.jitter {
		time.Sleep(time.Duration(rand.Intn(300)) * time.Microsecond)
	}
}

func (s *source) Load(_ context.Context, b *Batch[int, int]) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleep()
	for len(b.Records) < b.Cap() && s.cursor < len(s.input) {
		b.Records = append(b.Records, s.input[s.cursor])
		s.cursor++
	}
	return len(b.Records), nil
}

func (s *source) Process(_ context.Context, b *Batch[int, int]) error {
	s.sleep()
	for i, r := range b.Records {
		b.Results[i] = r * 10
	}
	b.Scratch = &scratch{processed: true}
	return nil
}

func (s *source) Emit(_ context.Context, b *Batch[int, int]) error {
	sc, ok := b.Scratch.(*scratch)
	if !ok || !sc.processed {
		s.violation.Store("emit saw an unprocessed batch")
	}
	s.sleep()
	s.outMu.Lock()
	defer s.outMu.Unlock()
	s.out = append(s.out, b.Results...)
	s.sizes = append(s.sizes, b.Len())
	return nil
}

func (s *source) output() []int {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	out := make([]int, 0, len(s.out))
	return append(out, s.out...)
}

func expected(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i * 10
	}
	return out
}

// accounting is an Observer tracking concurrency per stage and batch
// lifetimes.
type accounting struct {
	mu        sync.Mutex
	active    map[Stage]int
	maxActive map[Stage]int
	calls     map[Stage]int
	allocated map[int]int
	released  map[int]int
	errs      []error
}

func newAccounting() *accounting {
	return &accounting{
		active:    map[Stage]int{},
		maxActive: map[Stage]int{},
		calls:     map[Stage]int{},
		allocated: map[int]int{},
		released:  map[int]int{},
	}
}

func (a *accounting) BatchAllocated(seq int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allocated[seq]++
}

func (a *accounting) BatchReleased(seq int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released[seq]++
}

func (a *accounting) StageStarted(stage Stage, _ int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active[stage]++
	a.calls[stage]++
	if a.active[stage] > a.maxActive[stage] {
		a.maxActive[stage] = a.active[stage]
	}
}

func (a *accounting) StageFinished(stage Stage, _ int, _ int, _ time.Duration, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active[stage]--
	if err != nil {
		a.errs = append(a.errs, err)
	}
}

// balanced checks every allocated batch was released exactly once.
func (a *accounting) balanced(t *testing.T) {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	for seq, n := range a.allocated {
		if n != 1 {
			t.Fatalf("batch %d allocated %d times", seq, n)
		}
		if a.released[seq] != 1 {
			t.Fatalf("batch %d released %d times", seq, a.released[seq])
		}
	}
	if len(a.released) != len(a.allocated) {
		t.Fatalf("released %d batches, allocated %d", len(a.released), len(a.allocated))
	}
}

func (a *accounting) count(m map[Stage]int, s Stage) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return m[s]
}

func runBoth(t *testing.T, interleave bool, capacity int, stages Stages[int, int], obs Observer) (Summary, error) {
	t.Helper()
	return Run[int, int](context.Background(),
		Config{BatchSize: capacity, Interleave: interleave},
		stages, WithObserver(obs))
}
