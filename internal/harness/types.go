package harness

import (
	"fmt"
	"strings"

	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

// Trace event kinds besides the final dispatch states.
const (
	EventLaunch = "launch"
	EventCancel = "cancel"
)

// TraceEvent is one observable step of a scenario run.
type TraceEvent struct {
	Tick    int      `json:"tick"`
	Event   string   `json:"event"` // launch, cancel or a dispatch.State
	ID      runid.ID `json:"id,omitempty"`
	Seq     int64    `json:"seq,omitempty"`
	Running int      `json:"running,omitempty"` // launch only
	Code    int      `json:"code,omitempty"`    // failed only
	Signal  string   `json:"signal,omitempty"`  // failed only
}

// String renders the event as one trace line.
func (e TraceEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%d %s", e.Tick, e.Event)
	if e.Event == EventCancel {
		return b.String()
	}
	fmt.Fprintf(&b, " %s seq=%d", e.ID, e.Seq)
	switch e.Event {
	case EventLaunch:
		fmt.Fprintf(&b, " running=%d", e.Running)
	case string(dispatch.StateFailed):
		fmt.Fprintf(&b, " code=%d", e.Code)
		if e.Signal != "" {
			fmt.Fprintf(&b, " signal=%s", e.Signal)
		}
	}
	return b.String()
}

// Label is the "<event> <id>" form used by trace_order assertions.
func (e TraceEvent) Label() string {
	if e.ID == "" {
		return e.Event
	}
	return e.Event + " " + string(e.ID)
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Trace   []TraceEvent      `json:"trace"`
	Summary *dispatch.Summary `json:"summary"`

	// SourceError is the error the source ended with, if any.
	SourceError string `json:"source_error,omitempty"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Snapshot renders the trace and summary in golden file form.
func (r *Result) Snapshot(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	if s := r.Summary; s != nil {
		fmt.Fprintf(&b, "summary: dispatched=%d succeeded=%d failed=%d materialization_errors=%d launch_errors=%d peak_running=%d stopped=%t\n",
			s.Dispatched, s.Succeeded, s.Failed, s.MaterializationErrors, s.LaunchErrors, s.PeakRunning, s.Stopped)
	}
	if r.SourceError != "" {
		fmt.Fprintf(&b, "source_error: %s\n", r.SourceError)
	}
	return b.String()
}
