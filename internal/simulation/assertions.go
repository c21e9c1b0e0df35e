package simulation

import (
	"testing"

	"github.com/nvandessel/trustloop/internal/gate"
)

func mustPass(t *testing.T, result Result, turn int) TurnResult {
	t.Helper()
	tr, ok := result.Pass(turn)
	if !ok {
		t.Fatalf("%s: no evaluation pass ran as turn %d", result.Scenario, turn)
	}
	return tr
}

// AssertConfidence asserts the confidence after the pass that ran as turn.
func AssertConfidence(t *testing.T, result Result, turn, want int) {
	t.Helper()
	tr := mustPass(t, result, turn)
	if got := tr.Outcome.Result.NewConfidence; got != want {
		t.Errorf("AssertConfidence: %s turn %d: confidence %d, want %d", result.Scenario, turn, got, want)
	}
}

// AssertFired asserts that signal triggered in the pass that ran as turn.
func AssertFired(t *testing.T, result Result, turn int, signal string) {
	t.Helper()
	tr := mustPass(t, result, turn)
	if !tr.Fired(signal) {
		t.Errorf("AssertFired: %s turn %d: %s did not fire (triggered %v)", result.Scenario, turn, signal, tr.Outcome.Result.Triggered)
	}
}

// AssertNotFired asserts that signal did not trigger in the pass that ran as turn.
func AssertNotFired(t *testing.T, result Result, turn int, signal string) {
	t.Helper()
	tr := mustPass(t, result, turn)
	if tr.Fired(signal) {
		t.Errorf("AssertNotFired: %s turn %d: %s fired", result.Scenario, turn, signal)
	}
}

// AssertBounded asserts that confidence stayed in [0,100] after every event.
func AssertBounded(t *testing.T, result Result) {
	t.Helper()
	for _, tr := range result.Turns {
		if c := tr.State.Confidence; c < 0 || c > 100 {
			t.Errorf("AssertBounded: %s event %d: confidence %d out of range", result.Scenario, tr.Index, c)
		}
	}
}

// AssertAppliedWithin asserts that no pass applied a delta larger than limit.
func AssertAppliedWithin(t *testing.T, result Result, limit int) {
	t.Helper()
	for _, tr := range result.Turns {
		res := tr.Outcome.Result
		if res == nil {
			continue
		}
		if res.Applied > limit || res.Applied < -limit {
			t.Errorf("AssertAppliedWithin: %s turn %d: applied %d exceeds %d", result.Scenario, res.Turn, res.Applied, limit)
		}
	}
}

// AssertStreak asserts the streak after the pass that ran as turn.
func AssertStreak(t *testing.T, result Result, turn, want int) {
	t.Helper()
	tr := mustPass(t, result, turn)
	if got := tr.State.Streak; got != want {
		t.Errorf("AssertStreak: %s turn %d: streak %d, want %d", result.Scenario, turn, got, want)
	}
}

// AssertDeclines asserts that confidence after turn later is strictly lower
// than after turn earlier.
func AssertDeclines(t *testing.T, result Result, earlier, later int) {
	t.Helper()
	a := mustPass(t, result, earlier).State.Confidence
	b := mustPass(t, result, later).State.Confidence
	if b >= a {
		t.Errorf("AssertDeclines: %s: confidence %d at turn %d not below %d at turn %d", result.Scenario, b, later, a, earlier)
	}
}

// AssertVerdict asserts the gate verdict of the first event labeled label.
func AssertVerdict(t *testing.T, result Result, label string, want gate.Verdict) {
	t.Helper()
	tr, ok := result.Labeled(label)
	if !ok {
		t.Fatalf("AssertVerdict: %s: no event labeled %q", result.Scenario, label)
	}
	if tr.Outcome.Gate == nil {
		t.Fatalf("AssertVerdict: %s: %q did not consult the gate", result.Scenario, label)
	}
	if got := tr.Outcome.Gate.Verdict; got != want {
		t.Errorf("AssertVerdict: %s %q: verdict %s, want %s (%s)", result.Scenario, label, got, want, tr.Outcome.Gate.Reason)
	}
}
