package dispatch

import (
	"time"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

// State is the outcome of one dispatched item.
type State string

const (
	StateRunning              State = "running"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
	StateMaterializationError State = "materialization-error"
	StateLaunchError          State = "launch-error"
)

// Result records one dispatched item. OnLaunch sees it with StateRunning;
// OnExit sees the final state.
type Result struct {
	Seq      int64     `json:"seq"`
	ID       runid.ID  `json:"id"`
	Location string    `json:"location"`
	State    State     `json:"state"`
	ExitCode int       `json:"exit_code"`
	Signal   string    `json:"signal,omitempty"`
	Err      error     `json:"-"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitzero"`
}

// Summary aggregates a dispatcher run.
//
// Dispatched always equals Succeeded + Failed + MaterializationErrors +
// LaunchErrors.
type Summary struct {
	Session               string   `json:"session"`
	Skipped               int      `json:"skipped"`
	Aliased               int      `json:"aliased"`
	Dispatched            int      `json:"dispatched"`
	Succeeded             int      `json:"succeeded"`
	Failed                int      `json:"failed"`
	MaterializationErrors int      `json:"materialization_errors"`
	LaunchErrors          int      `json:"launch_errors"`
	PeakRunning           int      `json:"peak_running"`
	Stopped               bool     `json:"stopped"`
	Results               []Result `json:"results"`
}

func (s *Summary) add(r Result) {
	s.Dispatched++
	switch r.State {
	case StateSucceeded:
		s.Succeeded++
	case StateFailed:
		s.Failed++
	case StateMaterializationError:
		s.MaterializationErrors++
	case StateLaunchError:
		s.LaunchErrors++
	}
	s.Results = append(s.Results, r)
}

// Recorder observes the dispatch loop. Both methods run on the control
// goroutine; errors are logged and otherwise ignored.
type Recorder interface {
	OnLaunch(r Result) error
	OnExit(r Result) error
}
