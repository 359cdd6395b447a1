package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
	"github.com/lguelzow/CoreasSpellcaster/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// The dispatcher runs for real; only materialization and process launch
// are scripted. Processes exit one at a time in virtual-time order, so
// the trace does not depend on goroutine scheduling.
func Run(scenario *Scenario) (*Result, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := &Harness{scenario: scenario, cancel: cancel}

	src := &testutil.SliceSource{Items: items(scenario)}
	if scenario.SourceError != "" {
		src.Err = errors.New(scenario.SourceError)
	}

	d := &dispatch.Dispatcher{
		Limit:        scenario.Limit,
		Materializer: h,
		Launcher:     h,
		Recorders:    []dispatch.Recorder{h},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		Session:      testutil.FixedSession,
		Now:          h.now,
		Idle:         h.idle,
	}

	summary, err := d.Run(ctx, src)
	if summary == nil {
		return nil, fmt.Errorf("failed to run scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	result.Trace = h.trace
	result.Summary = summary
	if err != nil {
		result.SourceError = err.Error()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func items(s *Scenario) []catalog.WorkItem {
	out := make([]catalog.WorkItem, len(s.Tasks))
	for i, t := range s.Tasks {
		out[i] = catalog.WorkItem{
			ID:        runid.ID(t.ID),
			Params:    runid.Tuple{Primary: 14, LogEnergy: 8.0, RunIndex: i},
			EnergyBin: [2]float64{8.0, 8.1},
			Location:  filepath.Join("/sims", "inp", "8.0"),
		}
	}
	return out
}

// Harness is the scripted materializer, launcher and recorder of one run.
// Every method runs on the dispatcher's control goroutine.
type Harness struct {
	scenario *Scenario
	cancel   context.CancelFunc

	tick     int
	launches int
	trace    []TraceEvent

	// live holds launched processes that have not been reaped.
	live []*process
	// released counts processes let go but not yet reaped.
	released int
}

type process struct {
	id       runid.ID
	seq      int64
	order    int
	finishAt int
	exit     dispatch.Exit
	release  chan struct{}
}

// Wait implements dispatch.Process.
func (p *process) Wait() dispatch.Exit {
	<-p.release
	return p.exit
}

func (h *Harness) now() time.Time {
	return testutil.Epoch.Add(time.Duration(h.tick) * time.Second)
}

// Materialize implements dispatch.Materializer.
func (h *Harness) Materialize(_ context.Context, item catalog.WorkItem) (dispatch.Task, error) {
	spec, ok := h.scenario.task(item.ID)
	if !ok {
		return dispatch.Task{}, fmt.Errorf("no task scripted for %s", item.ID)
	}
	if spec.MaterializationError != "" {
		return dispatch.Task{}, errors.New(spec.MaterializationError)
	}
	return dispatch.Task{Path: spec.ID, Dir: item.Location}, nil
}

// Launch implements dispatch.Launcher.
func (h *Harness) Launch(task dispatch.Task) (dispatch.Process, error) {
	spec, ok := h.scenario.task(runid.ID(task.Path))
	if !ok {
		return nil, fmt.Errorf("no task scripted for %s", task.Path)
	}
	if spec.LaunchError != "" {
		return nil, errors.New(spec.LaunchError)
	}

	exit := dispatch.Exit{Code: spec.Exit, Signal: spec.Signal}
	if spec.Signal != "" {
		exit.Code = -1
	}

	p := &process{
		id:       runid.ID(spec.ID),
		order:    h.launches,
		finishAt: h.tick + max(spec.Duration, 1),
		exit:     exit,
		release:  make(chan struct{}),
	}
	h.launches++
	h.live = append(h.live, p)
	return p, nil
}

// OnLaunch implements dispatch.Recorder.
func (h *Harness) OnLaunch(r dispatch.Result) error {
	for _, p := range h.live {
		if p.id == r.ID && p.seq == 0 {
			p.seq = r.Seq
			break
		}
	}
	h.trace = append(h.trace, TraceEvent{
		Tick:    h.tick,
		Event:   EventLaunch,
		ID:      r.ID,
		Seq:     r.Seq,
		Running: len(h.live),
	})

	if h.scenario.CancelAfter > 0 && h.launches == h.scenario.CancelAfter {
		h.trace = append(h.trace, TraceEvent{Tick: h.tick, Event: EventCancel})
		h.cancel()
	}
	return nil
}

// OnExit implements dispatch.Recorder.
func (h *Harness) OnExit(r dispatch.Result) error {
	ev := TraceEvent{Tick: h.tick, Event: string(r.State), ID: r.ID, Seq: r.Seq}

	switch r.State {
	case dispatch.StateSucceeded, dispatch.StateFailed:
		h.live = slices.DeleteFunc(h.live, func(p *process) bool { return p.seq == r.Seq })
		h.released--
		if r.State == dispatch.StateFailed {
			ev.Code = r.ExitCode
			ev.Signal = r.Signal
		}
	}

	h.trace = append(h.trace, ev)
	return nil
}

// idle lets the live process that finishes first in virtual time exit,
// unless one already released has not been reaped yet.
func (h *Harness) idle(running int) {
	if h.released > 0 || len(h.live) == 0 {
		return
	}

	next := slices.MinFunc(h.live, func(a, b *process) int {
		if a.finishAt != b.finishAt {
			return a.finishAt - b.finishAt
		}
		return a.order - b.order
	})

	h.tick = max(h.tick, next.finishAt)
	h.released++
	close(next.release)
}
