package pipeline

import "fmt"

// Batch is the unit of pipelining: up to Cap() input records and a parallel
// slice of result slots.
//
// A batch is owned by exactly one stage at a time (load, then process, then
// emit) and must not be retained by a stage after it returns.
type Batch[T, R any] struct {
	// Seq is the 0-based load order of the batch.
	Seq int
	// Records is filled by the load stage, len(Records) <= Cap().
	Records []T
	// Results has one slot per record once the batch is sealed.
	Results []R
	// Scratch is free for the process stage; it is dropped on release.
	Scratch any

	capacity int
	loaded   int
	sealed   bool
	released bool
}

func newBatch[T, R any](seq, capacity int) *Batch[T, R] {
	return &Batch[T, R]{
		Seq:      seq,
		Records:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Cap returns the maximum number of records the batch can hold.
func (b *Batch[T, R]) Cap() int { return b.capacity }

// Len returns the loaded record count; it is 0 until the load is sealed.
func (b *Batch[T, R]) Len() int { return b.loaded }

// Full reports whether the load filled the batch to capacity.
func (b *Batch[T, R]) Full() bool { return b.sealed && b.loaded == b.capacity }

// seal fixes the loaded count reported by the load stage and allocates the
// result slots. It is called once per batch by the runner.
func (b *Batch[T, R]) seal(n int) error {
	if b.sealed {
		panic(fmt.Sprintf("pipeline: batch %d sealed twice", b.Seq))
	}
	if n < 0 || n > b.capacity {
		return fmt.Errorf("%w: loaded %d records into a batch of %d", ErrLoadCount, n, b.capacity)
	}
	if n != len(b.Records) {
		return fmt.Errorf("%w: reported %d records but holds %d", ErrLoadCount, n, len(b.Records))
	}
	b.loaded = n
	b.sealed = true
	b.Results = make([]R, n)
	return nil
}

// release drops every reference the batch holds. Using a batch after
// release, or releasing it twice, is a scheduler defect.
func (b *Batch[T, R]) release() {
	if b.released {
		panic(fmt.Sprintf("pipeline: batch %d released twice", b.Seq))
	}
	b.released = true
	b.Records = nil
	b.Results = nil
	b.Scratch = nil
}
