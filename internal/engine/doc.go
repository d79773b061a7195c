// Package engine implements the form state synchronization engine.
//
// The core is Apply, a pure transition function over the forms collection:
//
//	next, err := engine.Apply(forms, command.InputChange{...})
//
// Apply never mutates its input. It copies on write at field, form and
// collection granularity, so forms and fields a command does not touch keep
// their pointer identity and callers can detect change with ==. A command
// that cannot apply (unknown form, shape mismatch, ...) returns the input
// state and a *TransitionError; Transition discards the error.
//
// Runtime wraps Apply in a single-writer dispatch loop:
//
//  1. Commands are enqueued from any goroutine (Enqueue, Submit).
//  2. Run dequeues them one at a time in FIFO order.
//  3. Each command is stamped with the next seq.
//  4. The resulting snapshot is appended to the history, then handed to
//     the Recorder (the store) and Observers (metrics).
//
// Seq numbers are a per-session counter, never wall time, so a
// session's command log replays to the same snapshots.
package engine
