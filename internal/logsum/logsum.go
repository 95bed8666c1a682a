// Package logsum provides a table-driven approximation of log(exp(a)+exp(b)).
//
// The table is built once and is read-only afterwards, so a single Table can
// be shared by every goroutine of a run.
package logsum

import "math"

const (
	// Scale is the number of table entries per nat of difference.
	Scale = 1000.0
	// Size is the number of table entries.
	Size = 16000
	// cutoff is the difference beyond which log(1+exp(-d)) rounds to zero
	// for our purposes.
	cutoff = 15.7
)

// Table holds log(1 + exp(-i/Scale)) for i in [0, Size).
type Table struct {
	lookup [Size]float64
}

// New builds the lookup table.
func New() *Table {
	t := &Table{}
	for i := range t.lookup {
		t.lookup[i] = math.Log1p(math.Exp(-float64(i) / Scale))
	}
	return t
}

// Sum returns an approximation of log(exp(a) + exp(b)).
func (t *Table) Sum(a, b float64) float64 {
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	d := hi - lo
	switch {
	case math.IsInf(lo, -1) || d >= cutoff:
		return hi
	case math.IsNaN(d):
		// Both +Inf, or a NaN operand.
		return a + b
	}
	return hi + t.lookup[int(d*Scale)]
}

// SumAll folds Sum over xs. It returns -Inf for an empty slice.
func (t *Table) SumAll(xs ...float64) float64 {
	acc := math.Inf(-1)
	for _, x := range xs {
		acc = t.Sum(acc, x)
	}
	return acc
}
