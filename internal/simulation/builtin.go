package simulation

import (
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/signals"
)

// noStreakBonuses keeps increasers out of decay-only scenarios.
var noStreakBonuses = map[string]signals.Override{
	signals.StreakBonus5:  {Disabled: true},
	signals.StreakBonus10: {Disabled: true},
	signals.StreakBonus20: {Disabled: true},
}

// Builtin returns the reference scenarios shipped with the simulate command.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:        "working-failure",
			Description: "a failed command at confidence 70 costs 5 x 0.75 = 3 points",
			Start:       Start{Confidence: intPtr(70)},
			NoDecay:     true,
			Steps:       []Step{labeled(BashFailure("./scripts/deploy.sh"), "deploy fails")},
		},
		{
			Name:        "expert-failure",
			Description: "the same failure at confidence 96 costs 5 x 2.0 = 10 points (decay off)",
			Start:       Start{Confidence: intPtr(96)},
			NoDecay:     true,
			Steps:       []Step{labeled(BashFailure("./scripts/deploy.sh"), "deploy fails")},
		},
		{
			Name:        "expert-failure-decay",
			Description: "with default decay the failure at 96 also pays 1.4 decay and lands at 85 (CERTAINTY)",
			Start:       Start{Confidence: intPtr(96)},
			Steps:       []Step{labeled(BashFailure("./scripts/deploy.sh"), "deploy fails")},
		},
		{
			Name:        "death-spiral",
			Description: "reducers worth -47 fire together; the pass moves confidence by 20 at most",
			Start:       Start{Confidence: intPtr(80)},
			NoDecay:     true,
			Steps: []Step{{
				Label:     "everything goes wrong",
				Tool:      "Bash",
				Command:   "rm -rf /",
				Failed:    true,
				Assistant: "You're absolutely right, the implementation is complete.",
				Flags:     models.Flags{StuckLoopDetected: true, PlaceholderCode: true},
			}},
		},
		{
			Name:        "sycophancy-cooldown",
			Description: "sycophancy fires at turn 5, is cooling down at turn 6 and fires again at turn 7",
			Start:       Start{Confidence: intPtr(80)},
			NoDecay:     true,
			Signals:     noStreakBonuses,
			Steps: []Step{
				labeled(Idle(4), "warm up"),
				labeled(Reply("Great question! Let me look."), "flatter"),
				labeled(Reply("Great question! Let me look."), "flatter again"),
				labeled(Reply("Great question! Let me look."), "flatter once more"),
			},
		},
		{
			Name:        "fatigue",
			Description: "200 quiet turns: decay grows with session length and drains confidence",
			Start:       Start{Confidence: intPtr(70)},
			Signals:     noStreakBonuses,
			Steps:       []Step{labeled(Idle(200), "idle")},
		},
		{
			Name:        "earned-push",
			Description: "git push is denied at WORKING and allowed once passing tests lift the session to CERTAINTY",
			Start:       Start{Confidence: intPtr(70)},
			NoDecay:     true,
			Steps: []Step{
				labeled(Gate("git push origin main"), "push too early"),
				labeled(BashSuccess("go test ./...", "ok  \tgithub.com/acme/app\t0.01s"), "tests pass"),
				labeled(Gate("git push origin main"), "push"),
			},
		},
	}
}

// FindBuiltin returns the builtin scenario called name.
func FindBuiltin(name string) (Scenario, bool) {
	for _, sc := range Builtin() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

func labeled(s Step, label string) Step {
	s.Label = label
	return s
}
