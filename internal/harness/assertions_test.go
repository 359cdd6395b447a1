package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Tick: 0, Event: EventLaunch, ID: "000000", Seq: 1, Running: 1},
		{Tick: 0, Event: EventLaunch, ID: "000001", Seq: 2, Running: 2},
		{Tick: 1, Event: "failed", ID: "000001", Seq: 2, Code: 2},
		{Tick: 2, Event: "succeeded", ID: "000000", Seq: 1},
	}
	r.Summary = &dispatch.Summary{Dispatched: 2, Succeeded: 1, Failed: 1, PeakRunning: 2}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertTraceContains, Event: "failed", ID: "000001"},
		{Type: AssertTraceOrder, Events: []string{"launch 000001", "failed 000001", "succeeded 000000"}},
		{Type: AssertTraceCount, Event: EventLaunch, Count: 2},
		{Type: AssertTraceCount, Event: EventLaunch, ID: "000000", Count: 1},
		{Type: AssertSummary, Expect: map[string]any{"dispatched": 2, "stopped": false, "peak_running": 2}},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{
			name:      "contains",
			assertion: Assertion{Type: AssertTraceContains, Event: "failed", ID: "000000"},
			want:      "Expected: failed 000000",
		},
		{
			name:      "order reversed",
			assertion: Assertion{Type: AssertTraceOrder, Events: []string{"succeeded 000000", "failed 000001"}},
			want:      "succeeded 000000 (pos 4) should be before failed 000001 (pos 3)",
		},
		{
			name:      "order missing",
			assertion: Assertion{Type: AssertTraceOrder, Events: []string{"launch 000009"}},
			want:      "missing event: launch 000009",
		},
		{
			name:      "count",
			assertion: Assertion{Type: AssertTraceCount, Event: "succeeded", Count: 2},
			want:      "1 occurrences",
		},
		{
			name:      "summary mismatch",
			assertion: Assertion{Type: AssertSummary, Expect: map[string]any{"failed": 0}},
			want:      "failed = 1",
		},
		{
			name:      "summary unknown field",
			assertion: Assertion{Type: AssertSummary, Expect: map[string]any{"exploded": 1}},
			want:      "exploded missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
			assert.Contains(t, errs[0], "Full trace:")
		})
	}
}

func TestTraceEventString(t *testing.T) {
	tests := []struct {
		event TraceEvent
		want  string
	}{
		{TraceEvent{Tick: 3, Event: EventLaunch, ID: "016027", Seq: 4, Running: 2}, "t=3 launch 016027 seq=4 running=2"},
		{TraceEvent{Tick: 5, Event: "failed", ID: "016027", Seq: 4, Code: 1}, "t=5 failed 016027 seq=4 code=1"},
		{TraceEvent{Tick: 5, Event: "failed", ID: "016027", Seq: 4, Code: -1, Signal: "SIGTERM"}, "t=5 failed 016027 seq=4 code=-1 signal=SIGTERM"},
		{TraceEvent{Tick: 5, Event: "succeeded", ID: "016027", Seq: 4}, "t=5 succeeded 016027 seq=4"},
		{TraceEvent{Tick: 7, Event: EventCancel}, "t=7 cancel"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.String())
	}
}
