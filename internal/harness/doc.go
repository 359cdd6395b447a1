// Package harness runs the dispatcher against scripted scenarios.
//
// A scenario lists fake tasks with their exit status and duration in
// virtual ticks, a concurrency limit and optional interruptions. The real
// dispatch.Dispatcher runs them through an in-memory launcher that lets
// exactly one process exit at a time, always the one finishing first in
// virtual time. The resulting trace is therefore identical on every run
// and can be compared against golden files.
//
// # Scenario Format
//
//	name: limit_two
//	description: "Five tasks, two slots, the third fails"
//	limit: 2
//	cancel_after: 0        # cancel once this many tasks launched (0 = never)
//	source_error: ""       # returned by the source after the last task
//	tasks:
//	  - duration: 3
//	  - duration: 1
//	  - duration: 2
//	    exit: 1
//	  - id: "000003"
//	    materialization_error: "disk full"
//	  - launch_error: "exec format error"
//	  - signal: SIGKILL
//	assertions:
//	  - type: trace_contains
//	    event: failed
//	    id: "000002"
//	  - type: trace_order
//	    events: ["launch 000000", "succeeded 000001"]
//	  - type: trace_count
//	    event: launch
//	    count: 5
//	  - type: summary
//	    expect: { dispatched: 5, peak_running: 2 }
//
// Task ids default to the zero-padded task index.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/limit_two.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
package harness
