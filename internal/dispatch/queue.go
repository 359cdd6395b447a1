package dispatch

import "sync"

// exitEvent is posted by a reaper when its process ends.
type exitEvent struct {
	seq  int64
	exit Exit
}

// exitQueue is an unbounded FIFO of exit events. Reapers enqueue from
// their own goroutines; only the control loop dequeues.
//
// A buffered signal channel of size 1 lets the control loop select on
// new events together with context cancellation. Several enqueues may
// coalesce into one signal, so the loop drains with TryDequeue.
type exitQueue struct {
	mu     sync.Mutex
	events []exitEvent
	closed bool
	signal chan struct{}
}

func newExitQueue() *exitQueue {
	return &exitQueue{
		events: make([]exitEvent, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. It returns false once the queue is closed.
func (q *exitQueue) Enqueue(e exitEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the oldest event without blocking.
func (q *exitQueue) TryDequeue() (exitEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return exitEvent{}, false
	}
	e := q.events[0]
	q.events[0] = exitEvent{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that fires when events may be available.
func (q *exitQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued events.
func (q *exitQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further events and wakes waiters.
func (q *exitQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
