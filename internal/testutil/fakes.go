package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

// Gauge tracks how many fake processes are alive and the peak reached.
type Gauge struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (g *Gauge) inc() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	g.peak = max(g.peak, g.current)
}

func (g *Gauge) dec() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current--
}

// Current returns the number of live processes.
func (g *Gauge) Current() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Peak returns the highest number of simultaneously live processes.
func (g *Gauge) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

// FakeLauncher launches in-memory processes.
//
// By default every process exits successfully as soon as it is waited on.
// With Hold set, processes stay alive until released.
type FakeLauncher struct {
	// ExitFor decides a task's exit. Nil means success.
	ExitFor func(task dispatch.Task) dispatch.Exit
	// FailFor makes Launch fail for a task when it returns an error.
	FailFor func(task dispatch.Task) error
	// Hold keeps processes alive until Release or ReleaseAll.
	Hold bool

	Gauge Gauge

	mu       sync.Mutex
	launched []dispatch.Task
	procs    []*FakeProcess
}

// Launch implements dispatch.Launcher.
func (l *FakeLauncher) Launch(task dispatch.Task) (dispatch.Process, error) {
	if l.FailFor != nil {
		if err := l.FailFor(task); err != nil {
			return nil, err
		}
	}

	exit := dispatch.Exit{}
	if l.ExitFor != nil {
		exit = l.ExitFor(task)
	}

	p := &FakeProcess{Task: task, exit: exit, gauge: &l.Gauge, release: make(chan struct{})}
	if !l.Hold {
		p.Release()
	}

	l.Gauge.inc()
	l.mu.Lock()
	l.launched = append(l.launched, task)
	l.procs = append(l.procs, p)
	l.mu.Unlock()
	return p, nil
}

// Launched returns the tasks started so far, in launch order.
func (l *FakeLauncher) Launched() []dispatch.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]dispatch.Task(nil), l.launched...)
}

// Processes returns the processes started so far, in launch order.
func (l *FakeLauncher) Processes() []*FakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FakeProcess(nil), l.procs...)
}

// ReleaseAll lets every process started so far exit.
func (l *FakeLauncher) ReleaseAll() {
	for _, p := range l.Processes() {
		p.Release()
	}
}

// FakeProcess is a process that exits when released.
type FakeProcess struct {
	Task dispatch.Task

	exit    dispatch.Exit
	gauge   *Gauge
	once    sync.Once
	release chan struct{}
}

// Release lets the process exit. Further calls do nothing.
func (p *FakeProcess) Release() {
	p.once.Do(func() { close(p.release) })
}

// Wait implements dispatch.Process.
func (p *FakeProcess) Wait() dispatch.Exit {
	<-p.release
	p.gauge.dec()
	return p.exit
}

// SliceSource yields a fixed list of items.
type SliceSource struct {
	Items []catalog.WorkItem
	// Err, if set, is returned once the items are used up.
	Err   error
	Stat  catalog.Stats
	index int
}

// Next implements dispatch.Source.
func (s *SliceSource) Next() (catalog.WorkItem, bool, error) {
	if s.index >= len(s.Items) {
		return catalog.WorkItem{}, false, s.Err
	}
	item := s.Items[s.index]
	s.index++
	return item, true, nil
}

// Stats implements dispatch.StatsSource.
func (s *SliceSource) Stats() catalog.Stats { return s.Stat }

// Pulled returns how many items were handed out.
func (s *SliceSource) Pulled() int { return s.index }

// WorkItems builds n items with identifiers 000000, 000001, ... under root.
func WorkItems(root string, n int) []catalog.WorkItem {
	items := make([]catalog.WorkItem, n)
	for i := range items {
		items[i] = catalog.WorkItem{
			ID:        runid.ID(fmt.Sprintf("%06d", i)),
			Params:    runid.Tuple{Primary: 14, LogEnergy: 8.0, Zenith: 63.0, Azimuth: 0, RunIndex: i},
			EnergyBin: [2]float64{8.0, 8.1},
			Location:  filepath.Join(root, "inp", "8.0"),
		}
	}
	return items
}

// EchoMaterializer turns an item into a task named after its identifier.
var EchoMaterializer = dispatch.MaterializerFunc(func(_ context.Context, item catalog.WorkItem) (dispatch.Task, error) {
	return dispatch.Task{Path: "run_" + string(item.ID), Dir: item.Location}, nil
})

// RecorderSpy records every notification it receives.
type RecorderSpy struct {
	// Err is returned from both hooks.
	Err error

	mu       sync.Mutex
	Launches []dispatch.Result
	Exits    []dispatch.Result
	running  int
	peak     int
}

// OnLaunch implements dispatch.Recorder.
func (s *RecorderSpy) OnLaunch(r dispatch.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Launches = append(s.Launches, r)
	s.running++
	s.peak = max(s.peak, s.running)
	return s.Err
}

// OnExit implements dispatch.Recorder.
func (s *RecorderSpy) OnExit(r dispatch.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Exits = append(s.Exits, r)
	if r.State == dispatch.StateSucceeded || r.State == dispatch.StateFailed {
		s.running--
	}
	return s.Err
}

// Peak returns the highest number of launched but not yet exited items.
func (s *RecorderSpy) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
