package simulation

import (
	"context"
	"testing"

	"github.com/nvandessel/trustloop/internal/gate"
	"github.com/nvandessel/trustloop/internal/signals"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	return NewRunner(tmpDir, nil)
}

func runBuiltin(t *testing.T, name string) Result {
	t.Helper()
	sc, ok := FindBuiltin(name)
	if !ok {
		t.Fatalf("no builtin scenario %q", name)
	}
	result, err := newTestRunner(t).Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run(%s): %v", name, err)
	}
	AssertBounded(t, result)
	return result
}

func TestScenario_WorkingFailure(t *testing.T) {
	result := runBuiltin(t, "working-failure")
	AssertFired(t, result, 1, signals.ToolFailure)
	AssertConfidence(t, result, 1, 67)
}

func TestScenario_ExpertFailure(t *testing.T) {
	result := runBuiltin(t, "expert-failure")
	AssertFired(t, result, 1, signals.ToolFailure)
	AssertConfidence(t, result, 1, 86)
}

func TestScenario_ExpertFailureWithDecay(t *testing.T) {
	result := runBuiltin(t, "expert-failure-decay")
	AssertFired(t, result, 1, signals.ToolFailure)
	AssertConfidence(t, result, 1, 85)
	if got := mustPass(t, result, 1).Outcome.Result.Decay; got != 1 {
		t.Errorf("Decay = %d, want 1", got)
	}
}

func TestScenario_DeathSpiral(t *testing.T) {
	result := runBuiltin(t, "death-spiral")

	pass := mustPass(t, result, 1).Outcome.Result
	if pass.RawDelta != -47 {
		t.Errorf("RawDelta = %d, want -47 (triggered %v)", pass.RawDelta, pass.Triggered)
	}
	if pass.Applied != -20 || !pass.RateLimited {
		t.Errorf("Applied = %d, RateLimited = %v, want -20 and true", pass.Applied, pass.RateLimited)
	}
	AssertConfidence(t, result, 1, 60)
	AssertAppliedWithin(t, result, 20)
}

func TestScenario_SycophancyCooldown(t *testing.T) {
	result := runBuiltin(t, "sycophancy-cooldown")
	AssertFired(t, result, 5, signals.Sycophancy)
	AssertNotFired(t, result, 6, signals.Sycophancy)
	AssertFired(t, result, 7, signals.Sycophancy)
}

func TestScenario_Fatigue(t *testing.T) {
	result := runBuiltin(t, "fatigue")
	if got := len(result.Turns); got != 200 {
		t.Fatalf("replayed %d events, want 200", got)
	}
	AssertDeclines(t, result, 50, 200)
	// Only decay applied, so the streak never broke.
	AssertStreak(t, result, 200, 200)
}

func TestScenario_EarnedPush(t *testing.T) {
	result := runBuiltin(t, "earned-push")
	AssertVerdict(t, result, "push too early", gate.Deny)
	AssertFired(t, result, 1, signals.TestsPassed)
	AssertVerdict(t, result, "push", gate.Allow)
}

func TestBuiltin_AllValid(t *testing.T) {
	seen := make(map[string]bool)
	for _, sc := range Builtin() {
		if err := sc.Validate(); err != nil {
			t.Errorf("%s: %v", sc.Name, err)
		}
		if seen[sc.Name] {
			t.Errorf("duplicate scenario name %s", sc.Name)
		}
		seen[sc.Name] = true
	}
	if _, ok := FindBuiltin("no-such-scenario"); ok {
		t.Error("FindBuiltin found an unknown scenario")
	}
}

func TestStreak_ResetsOnFailureAndClimbsAgain(t *testing.T) {
	result, err := newTestRunner(t).Run(context.Background(), Scenario{
		Name:    "streak",
		NoDecay: true,
		Steps: []Step{
			Idle(5),
			BashFailure("./scripts/deploy.sh"),
			Idle(3),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	AssertStreak(t, result, 5, 5)
	AssertStreak(t, result, 6, 0)
	AssertStreak(t, result, 9, 3)
}
