// Package simulation provides a multi-turn test harness for validating the
// emergent dynamics of confidence scoring.
//
// The simulation exercises the real App, Engine, session store and gate: no
// mocks. Scenarios are either Go values or YAML documents listing hook
// events; the runner replays them against an isolated project root and
// captures the session state after every event for property-based
// assertions.
//
// Usage:
//
//	func TestToolFailure(t *testing.T) {
//	    r := simulation.NewRunner(t.TempDir(), nil)
//	    result, err := r.Run(ctx, simulation.Scenario{
//	        Name:    "tool-failure",
//	        NoDecay: true,
//	        Steps:   []simulation.Step{simulation.BashFailure("./scripts/deploy.sh")},
//	    })
//	    simulation.AssertConfidence(t, result, 1, 67)
//	}
package simulation
