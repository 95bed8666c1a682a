// Package pipeline schedules batches of reads through three stages: load,
// process and emit.
//
// Two runners share the same Stages contract. Controller overlaps the stages
// across successive batches: while batch k is being processed in the
// background, the calling goroutine loads batch k+1, and batch k-1 is being
// written out. At most one process task and one emit task are ever active,
// and both run in load order, so output order equals input order.
// SerialRunner executes load, process and emit strictly one batch at a time.
//
// Each launched batch is paired with a fresh Handshake. The process task
// signals it exactly once, whatever the outcome; the emit task waits on it,
// writes the batch and releases both. Stage panics are recovered at this
// boundary so the signal is never lost.
package pipeline
