package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
)

// Dispatcher runs items from a Source with at most Limit processes alive.
type Dispatcher struct {
	Limit        int
	Materializer Materializer
	Launcher     Launcher
	Recorders    []Recorder
	Logger       *slog.Logger

	// Session labels the run. Empty means a fresh UUIDv7.
	Session string

	// Now stamps results. Nil means time.Now.
	Now func() time.Time

	// Idle, if set, is called on the control goroutine each time it is
	// about to block waiting for an exit.
	Idle func(running int)
}

// slot is a Running process slot keyed by its item's sequence number.
type slot struct {
	result Result
}

// Run dispatches until src is exhausted and every launched process has
// been reaped. Cancelling ctx stops pulling and drains what is running;
// the summary then has Stopped set and Run returns a nil error.
//
// A source error stops pulling the same way and is returned together with
// the summary of everything dispatched before it.
func (d *Dispatcher) Run(ctx context.Context, src Source) (*Summary, error) {
	if d.Limit < 1 {
		return nil, fmt.Errorf("concurrency limit %d must be at least 1", d.Limit)
	}
	if d.Materializer == nil || d.Launcher == nil {
		return nil, errors.New("dispatcher needs a materializer and a launcher")
	}

	session := d.Session
	if session == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("session id: %w", err)
		}
		session = id.String()
	}

	r := &run{
		d:       d,
		logger:  d.logger().With("session", session),
		summary: &Summary{Session: session},
		queue:   newExitQueue(),
		clock:   NewClock(),
		running: make(map[int64]*slot),
	}
	defer r.queue.Close()

	r.logger.Info("dispatch starting", "limit", d.Limit)
	srcErr := r.loop(ctx, src)

	if ss, ok := src.(StatsSource); ok {
		stats := ss.Stats()
		r.summary.Skipped = stats.Skipped
		r.summary.Aliased = stats.Aliased
	}
	slices.SortFunc(r.summary.Results, func(a, b Result) int {
		return int(a.Seq - b.Seq)
	})

	r.logger.Info("dispatch finished",
		"dispatched", r.summary.Dispatched,
		"succeeded", r.summary.Succeeded,
		"failed", r.summary.Failed,
		"materialization_errors", r.summary.MaterializationErrors,
		"launch_errors", r.summary.LaunchErrors,
		"stopped", r.summary.Stopped)

	return r.summary, srcErr
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// run holds the state of one Run call. Only the control goroutine touches
// it; reapers communicate through queue.
type run struct {
	d       *Dispatcher
	logger  *slog.Logger
	summary *Summary
	queue   *exitQueue
	clock   *Clock
	running map[int64]*slot
}

func (r *run) loop(ctx context.Context, src Source) error {
	var srcErr error
	pulling := true
	done := ctx.Done()

	for {
		for pulling && len(r.running) < r.d.Limit {
			if ctx.Err() != nil {
				pulling = false
				r.stop()
				break
			}
			item, ok, err := src.Next()
			if err != nil {
				r.logger.Error("work source failed, draining", "error", err)
				srcErr = err
				pulling = false
				break
			}
			if !ok {
				pulling = false
				break
			}
			r.start(ctx, item)
		}

		if !pulling && len(r.running) == 0 {
			return srcErr
		}

		if ev, ok := r.queue.TryDequeue(); ok {
			r.reap(ev)
			continue
		}

		if r.d.Idle != nil {
			r.d.Idle(len(r.running))
		}

		select {
		case <-done:
			// Stop waiting on a closed channel; exits still arrive on the queue.
			done = nil
			if pulling {
				pulling = false
				r.stop()
			}
		case <-r.queue.Wait():
		}
	}
}

func (r *run) stop() {
	if r.summary.Stopped {
		return
	}
	r.summary.Stopped = true
	r.logger.Info("dispatch stopping, draining running tasks", "running", len(r.running))
}

// start takes one slot through Launching. On success the slot is Running
// and a reaper waits for its exit.
func (r *run) start(ctx context.Context, item catalog.WorkItem) {
	res := Result{
		Seq:      r.clock.Next(),
		ID:       item.ID,
		Location: item.Location,
		Started:  r.d.now(),
	}

	task, err := r.d.Materializer.Materialize(ctx, item)
	if err != nil {
		if !IsMaterializationError(err) {
			err = &MaterializationError{ID: item.ID, Location: item.Location, Err: err}
		}
		r.fail(res, StateMaterializationError, err)
		return
	}

	proc, err := r.d.Launcher.Launch(task)
	if err != nil {
		if !IsLaunchError(err) {
			err = &LaunchError{ID: item.ID, Path: task.Path, Err: err}
		}
		r.fail(res, StateLaunchError, err)
		return
	}

	res.State = StateRunning
	r.running[res.Seq] = &slot{result: res}
	r.summary.PeakRunning = max(r.summary.PeakRunning, len(r.running))

	r.logger.Info("task launched",
		"seq", res.Seq,
		"id", res.ID,
		"location", res.Location,
		"running", len(r.running))
	r.notify(res, Recorder.OnLaunch)

	go func(seq int64) {
		r.queue.Enqueue(exitEvent{seq: seq, exit: proc.Wait()})
	}(res.Seq)
}

func (r *run) fail(res Result, state State, err error) {
	res.State = state
	res.Err = err
	res.Finished = r.d.now()

	r.logger.Warn("task not started",
		"seq", res.Seq,
		"id", res.ID,
		"location", res.Location,
		"state", state,
		"error", err)
	r.summary.add(res)
	r.notify(res, Recorder.OnExit)
}

// reap takes a slot through Reaping back to Empty.
func (r *run) reap(ev exitEvent) {
	s, ok := r.running[ev.seq]
	if !ok {
		r.logger.Error("exit for unknown slot", "seq", ev.seq)
		return
	}
	delete(r.running, ev.seq)

	res := s.result
	res.Finished = r.d.now()
	res.ExitCode = ev.exit.Code
	res.Signal = ev.exit.Signal

	if ev.exit.Success() {
		res.State = StateSucceeded
		r.logger.Info("task succeeded",
			"seq", res.Seq,
			"id", res.ID,
			"running", len(r.running))
	} else {
		res.State = StateFailed
		res.Err = ev.exit.Err
		if res.Err == nil {
			res.Err = &TaskError{ID: res.ID, Code: res.ExitCode, Signal: res.Signal}
		}
		r.logger.Warn("task failed",
			"seq", res.Seq,
			"id", res.ID,
			"location", res.Location,
			"exit_code", res.ExitCode,
			"signal", res.Signal,
			"error", res.Err,
			"running", len(r.running))
	}

	r.summary.add(res)
	r.notify(res, Recorder.OnExit)
}

func (r *run) notify(res Result, hook func(Recorder, Result) error) {
	for _, rec := range r.d.Recorders {
		if err := hook(rec, res); err != nil {
			r.logger.Error("recorder failed",
				"seq", res.Seq,
				"id", res.ID,
				"error", err)
		}
	}
}
