package dispatch

import (
	"context"

	"github.com/lguelzow/CoreasSpellcaster/internal/catalog"
)

// Source yields work items. ok=false with a nil error means exhausted.
type Source interface {
	Next() (item catalog.WorkItem, ok bool, err error)
}

// StatsSource is a Source that also reports what it skipped.
type StatsSource interface {
	Source
	Stats() catalog.Stats
}

// Task is a launchable process description.
type Task struct {
	Path    string   `json:"path"`
	Args    []string `json:"args,omitempty"`
	Dir     string   `json:"dir,omitempty"`
	Env     []string `json:"env,omitempty"` // appended to the launcher's environment
	LogPath string   `json:"log_path,omitempty"`
}

// Materializer prepares the files a work item needs and returns the task
// that simulates it.
type Materializer interface {
	Materialize(ctx context.Context, item catalog.WorkItem) (Task, error)
}

// MaterializerFunc adapts a function to Materializer.
type MaterializerFunc func(ctx context.Context, item catalog.WorkItem) (Task, error)

func (f MaterializerFunc) Materialize(ctx context.Context, item catalog.WorkItem) (Task, error) {
	return f(ctx, item)
}

// Exit describes how a process ended.
type Exit struct {
	Code   int
	Signal string // non-empty when the process was killed by a signal
	Err    error  // set when waiting itself failed
}

// Success reports a zero exit without signal or wait error.
func (e Exit) Success() bool {
	return e.Err == nil && e.Signal == "" && e.Code == 0
}

// Process is a started task.
type Process interface {
	// Wait blocks until the process exits. It is called exactly once.
	Wait() Exit
}

// Launcher starts tasks.
type Launcher interface {
	Launch(task Task) (Process, error)
}
