package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

// Scenario defines one scripted dispatcher run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Limit is the dispatcher's concurrency limit.
	Limit int `yaml:"limit"`

	// CancelAfter cancels the run once this many tasks have launched.
	// Zero never cancels.
	CancelAfter int `yaml:"cancel_after,omitempty"`

	// SourceError, if set, is returned by the source after the last task.
	SourceError string `yaml:"source_error,omitempty"`

	// Tasks are handed to the dispatcher in order.
	Tasks []TaskSpec `yaml:"tasks"`

	// Assertions validate the final trace and summary.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// TaskSpec scripts one fake task.
type TaskSpec struct {
	// ID defaults to the zero-padded task index.
	ID string `yaml:"id,omitempty"`

	// Duration is the number of virtual ticks the process runs. Zero means 1.
	Duration int `yaml:"duration,omitempty"`

	Exit   int    `yaml:"exit,omitempty"`
	Signal string `yaml:"signal,omitempty"`

	// LaunchError makes the launcher fail with this message.
	LaunchError string `yaml:"launch_error,omitempty"`

	// MaterializationError makes the materializer fail with this message.
	MaterializationError string `yaml:"materialization_error,omitempty"`
}

// Assertion validates the trace or summary.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, summary.
	Type string `yaml:"type"`

	// Event is a trace event kind (used by trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// ID narrows Event to one task (used by trace_contains, trace_count).
	ID string `yaml:"id,omitempty"`

	// Events is the expected order of "<event> <id>" labels (used by trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Expect is a subset of the JSON summary fields (used by summary).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertSummary       = "summary"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields so typos like "asertions:" fail loudly
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range scenario.Tasks {
		if scenario.Tasks[i].ID == "" {
			scenario.Tasks[i].ID = fmt.Sprintf("%06d", i)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", s.Limit)
	}
	if s.CancelAfter < 0 {
		return fmt.Errorf("cancel_after must be non-negative")
	}

	seen := make(map[string]int, len(s.Tasks))
	for i, task := range s.Tasks {
		if prev, ok := seen[task.ID]; ok {
			return fmt.Errorf("tasks[%d]: id %q already used by tasks[%d]", i, task.ID, prev)
		}
		seen[task.ID] = i

		if task.Duration < 0 {
			return fmt.Errorf("tasks[%d]: duration must be non-negative", i)
		}
		if task.LaunchError != "" && task.MaterializationError != "" {
			return fmt.Errorf("tasks[%d]: launch_error and materialization_error are exclusive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertSummary:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for summary", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// task returns the spec of id.
func (s *Scenario) task(id runid.ID) (TaskSpec, bool) {
	for _, t := range s.Tasks {
		if t.ID == string(id) {
			return t, true
		}
	}
	return TaskSpec{}, false
}
