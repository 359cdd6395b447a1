// Package dispatch runs work items as external processes with a fixed
// concurrency limit.
//
// The Dispatcher owns a pool of Limit slots. A single control goroutine
// pulls items from a Source, materializes each into a Task, launches it and
// records the outcome; every running process has a reaper goroutine that
// waits for the exit and posts it to a FIFO queue. The control goroutine
// blocks only on that queue or on context cancellation, never on a single
// slot, so a freed slot is refilled as soon as its exit is observed.
//
// Slot lifecycle:
//
//	Empty -> Launching -> Running -> Reaping -> Empty
//
// A failed materialization or launch returns the slot to Empty without
// entering Running. Task failures are recorded and never stop the loop.
//
// Cancelling the context stops pulling new items. Processes already
// running are left alone and drained; the Dispatcher never kills them.
package dispatch
