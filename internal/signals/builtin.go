package signals

import (
	"errors"

	"github.com/nvandessel/trustloop/internal/models"
)

// Builtin signal names.
const (
	ToolFailure        = "tool_failure"
	CascadeFailure     = "cascade_failure"
	TestFailure        = "test_failure"
	BuildFailure       = "build_failure"
	Sycophancy         = "sycophancy"
	FalseCompletion    = "false_completion"
	DestructiveCommand = "destructive_command"
	EditWithoutRead    = "edit_without_read"
	StuckLoop          = "stuck_loop"
	UserCorrection     = "user_correction"
	PlaceholderCode    = "placeholder_code"
	Hedging            = "hedging"
	LargeDiff          = "large_diff"
	ContextPressure    = "context_pressure"
	ToolChurn          = "tool_churn"

	TestsPassed      = "tests_passed"
	BuildSuccess     = "build_success"
	LintPassed       = "lint_passed"
	EvidenceGathered = "evidence_gathered"
	Research         = "research"
	SerenaActivated  = "serena_activated"
	UserEndorsement  = "user_endorsement"
	TaskCompletion   = "task_completion"
	StreakBonus5     = "streak_bonus_5"
	StreakBonus10    = "streak_bonus_10"
	StreakBonus20    = "streak_bonus_20"
)

const (
	// cascadeThreshold is the failure run length that escalates to cascade_failure.
	cascadeThreshold = 3
	// contextPressurePct is the window usage at which context_pressure fires.
	contextPressurePct = 80.0
	// churnThreshold is the number of tool calls without an edit that counts as churn.
	churnThreshold = 15
)

var errNoPatterns = errors.New("no compiled patterns")

// Builtin returns the default signal set in evaluation order: reducers
// first, then increasers.
func Builtin() []Signal {
	return append(BuiltinReducers(), BuiltinIncreasers()...)
}

// BuiltinReducers returns the default reducers.
func BuiltinReducers() []Signal {
	return []Signal{
		Reducer(ToolFailure, -5, 1, models.ImpactFailure, models.PenaltyProcess,
			"a tool call returned an error",
			func(in Input) (bool, error) { return in.Ctx.ToolFailed, nil }),
		Reducer(CascadeFailure, -10, 3, models.ImpactFailure, models.PenaltyProcess,
			"several tool failures in a row",
			func(in Input) (bool, error) {
				return in.Ctx.ToolFailed && in.State.ConsecutiveFailures+1 >= cascadeThreshold, nil
			}),
		Reducer(TestFailure, -4, 1, models.ImpactFailure, models.PenaltyProcess,
			"the test suite failed",
			func(in Input) (bool, error) { return in.Ctx.Flags.TestsFailed, nil }),
		Reducer(BuildFailure, -4, 1, models.ImpactFailure, models.PenaltyProcess,
			"the build failed",
			func(in Input) (bool, error) { return in.Ctx.Flags.BuildFailed, nil }),
		Reducer(Sycophancy, -5, 2, models.ImpactBehavioral, models.PenaltyIntegrity,
			"assistant flattered instead of engaging",
			textMatch(func(p *Patterns) patternList { return p.Sycophancy }, assistantText)),
		Reducer(FalseCompletion, -10, 3, models.ImpactBehavioral, models.PenaltyIntegrity,
			"claimed completion without passing tests",
			func(in Input) (bool, error) {
				if in.Patterns == nil {
					return false, errNoPatterns
				}
				if in.Ctx.Flags.TestsPassed || in.State.TestsPassing {
					return false, nil
				}
				return MatchAny(in.Patterns.CompletionClaim, in.Ctx.AssistantOutput), nil
			}),
		Reducer(DestructiveCommand, -15, 1, models.ImpactBehavioral, models.PenaltyIntegrity,
			"attempted an irrevocable destructive command",
			textMatch(func(p *Patterns) patternList { return p.Destructive }, commandText)),
		Reducer(EditWithoutRead, -3, 1, models.ImpactBehavioral, models.PenaltyProcess,
			"edited a file that was never read",
			func(in Input) (bool, error) {
				if !in.Ctx.IsEdit() || in.Ctx.FilePath == "" {
					return false, nil
				}
				return !in.State.HasRead(in.Ctx.FilePath) && !in.State.HasEdited(in.Ctx.FilePath), nil
			}),
		Reducer(StuckLoop, -8, 5, models.ImpactBehavioral, models.PenaltyProcess,
			"repeating the same action without progress",
			func(in Input) (bool, error) { return in.Ctx.Flags.StuckLoopDetected, nil }),
		Reducer(UserCorrection, -6, 2, models.ImpactBehavioral, models.PenaltyProcess,
			"the user corrected the agent",
			textMatch(func(p *Patterns) patternList { return p.Correction }, promptText)),
		Reducer(PlaceholderCode, -4, 2, models.ImpactBehavioral, models.PenaltyProcess,
			"wrote stub or placeholder code",
			func(in Input) (bool, error) { return in.Ctx.Flags.PlaceholderCode, nil }),
		Reducer(Hedging, -2, 3, models.ImpactAmbient, models.PenaltyProcess,
			"hedged instead of verifying",
			textMatch(func(p *Patterns) patternList { return p.Hedging }, assistantText)),
		Reducer(LargeDiff, -2, 3, models.ImpactAmbient, models.PenaltyProcess,
			"made an oversized change",
			func(in Input) (bool, error) { return in.Ctx.Flags.LargeDiff, nil }),
		Reducer(ContextPressure, -1, 10, models.ImpactAmbient, models.PenaltyProcess,
			"context window nearly full",
			func(in Input) (bool, error) { return in.Ctx.WindowPct >= contextPressurePct, nil }),
		Reducer(ToolChurn, -1, 5, models.ImpactAmbient, models.PenaltyProcess,
			"many tool calls without an edit",
			func(in Input) (bool, error) { return in.State.ToolsSinceEdit >= churnThreshold, nil }),
	}
}

// BuiltinIncreasers returns the default increasers.
func BuiltinIncreasers() []Signal {
	return []Signal{
		Increaser(TestsPassed, 5, 2, "the test suite passed",
			func(in Input) (bool, error) { return in.Ctx.Flags.TestsPassed, nil }),
		Increaser(BuildSuccess, 3, 2, "the build succeeded",
			func(in Input) (bool, error) { return in.Ctx.Flags.BuildSucceeded, nil }),
		Increaser(LintPassed, 2, 3, "linters passed",
			func(in Input) (bool, error) { return in.Ctx.Flags.LintPassed, nil }),
		Increaser(EvidenceGathered, 1, 3, "read or searched the code before acting",
			toolSucceeded("Read", "Grep", "Glob", "LS")),
		Increaser(Research, 2, 5, "looked up external documentation",
			toolSucceeded("WebSearch", "WebFetch")),
		Increaser(SerenaActivated, 3, 20, "semantic code tooling activated",
			func(in Input) (bool, error) { return in.Ctx.Flags.SerenaActivated, nil }),
		Increaser(UserEndorsement, 4, 3, "the user endorsed the work",
			textMatch(func(p *Patterns) patternList { return p.Endorsement }, promptText)),
		Increaser(TaskCompletion, 10, 5, "completed a task with passing tests",
			func(in Input) (bool, error) {
				if in.Patterns == nil {
					return false, errNoPatterns
				}
				return in.Ctx.Flags.TestsPassed && MatchAny(in.Patterns.CompletionClaim, in.Ctx.AssistantOutput), nil
			}, WithApproval()),
		Increaser(StreakBonus5, 1, 5, "five clean passes in a row", streakAtLeast(5), AsStreakBonus()),
		Increaser(StreakBonus10, 2, 5, "ten clean passes in a row", streakAtLeast(10), AsStreakBonus()),
		Increaser(StreakBonus20, 3, 5, "twenty clean passes in a row", streakAtLeast(20), AsStreakBonus()),
	}
}

func streakAtLeast(n int) Predicate {
	return func(in Input) (bool, error) { return in.State.Streak >= n, nil }
}

func toolSucceeded(tools ...string) Predicate {
	return func(in Input) (bool, error) {
		if in.Ctx.ToolFailed {
			return false, nil
		}
		for _, t := range tools {
			if in.Ctx.ToolName == t {
				return true, nil
			}
		}
		return false, nil
	}
}
