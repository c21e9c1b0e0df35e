// Package gate enforces tier privileges on PreToolUse events. The tier
// policy decides what a tier may do; the gate classifies each tool call and
// applies the tier's enforcement mode.
package gate

import (
	"fmt"
	"regexp"

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/pathutil"
	"github.com/nvandessel/trustloop/internal/tiering"
)

// Action is the privilege a tool call needs.
type Action string

const (
	// ActionRead needs no privilege: reads, searches and shell commands
	// that are neither git writes nor irrevocable.
	ActionRead            Action = "read"
	ActionWriteScratch    Action = "write_scratch"
	ActionEdit            Action = "edit"
	ActionWriteProduction Action = "write_production"
	ActionGitWrite        Action = "git_write"
	// ActionGitRewrite rewrites or discards published history.
	ActionGitRewrite Action = "git_rewrite"
	// ActionIrrevocable is blocked at every tier and in every mode.
	ActionIrrevocable Action = "irrevocable"
)

// Verdict is the gate outcome.
type Verdict string

const (
	Allow Verdict = "allow"
	// Warn lets the call through with a warning (warn mode).
	Warn Verdict = "warn"
	Deny Verdict = "deny"
)

var gitWrite = regexp.MustCompile(`\bgit\s+(-C\s+\S+\s+)?(commit|push|merge|rebase|reset|tag|cherry-pick|revert|am|stash\s+(drop|clear)|branch\s+-[dDmM]|checkout\s+--?\s|clean\s+-[a-zA-Z]*f)\b`)

var gitRewrite = regexp.MustCompile(`\bgit\s+(-C\s+\S+\s+)?(push\b.*\s(--force(-with-lease)?|-f|--mirror|--delete|-d)\b|push\b.*\s\+\S|reset\s+--hard|rebase|filter-branch|filter-repo|commit\b.*\s--amend)`)

// Decision is the gate's ruling on one tool call.
type Decision struct {
	Verdict Verdict      `json:"verdict"`
	Action  Action       `json:"action"`
	Tier    tiering.Tier `json:"tier"`
	Mode    tiering.Mode `json:"mode"`
	Reason  string       `json:"reason,omitempty"`
	// Pattern is the irrevocable expression that matched, if any.
	Pattern string `json:"pattern,omitempty"`
}

// Gate classifies tool calls and rules on them.
type Gate struct {
	policy  *tiering.Policy
	scratch []string
}

// New creates a gate. scratchDirs are the locations writable at every tier.
func New(policy *tiering.Policy, scratchDirs []string) *Gate {
	return &Gate{policy: policy, scratch: scratchDirs}
}

// Classify returns the action c needs, plus the irrevocable pattern that
// matched for ActionIrrevocable.
func (g *Gate) Classify(c models.Context) (Action, string) {
	switch {
	case c.ToolName == "Bash":
		if pat, ok := g.policy.Irrevocable(c.Command); ok {
			return ActionIrrevocable, pat
		}
		if gitRewrite.MatchString(c.Command) {
			return ActionGitRewrite, ""
		}
		if gitWrite.MatchString(c.Command) {
			return ActionGitWrite, ""
		}
		return ActionRead, ""
	case c.IsWrite():
		if c.FilePath != "" && pathutil.IsWithin(c.FilePath, g.scratch) {
			return ActionWriteScratch, ""
		}
		if c.IsEdit() {
			return ActionEdit, ""
		}
		return ActionWriteProduction, ""
	}
	return ActionRead, ""
}

// Check rules on c for the given tier decision.
func (g *Gate) Check(d tiering.Decision, c models.Context) Decision {
	action, pattern := g.Classify(c)
	out := Decision{Action: action, Tier: d.Tier, Mode: d.Mode, Pattern: pattern}

	if action == ActionIrrevocable {
		out.Verdict = Deny
		out.Reason = fmt.Sprintf("command matches an irrevocable pattern (%s) and is blocked at every tier", pattern)
		return out
	}
	if permitted(d.Privileges, action) {
		out.Verdict = Allow
		return out
	}

	switch d.Mode {
	case tiering.ModeDisabled:
		out.Verdict = Allow
	case tiering.ModeWarn:
		out.Verdict = Warn
		out.Reason = fmt.Sprintf("%s is not granted at tier %s; allowed in warn mode", action, d.Tier)
	default:
		out.Verdict = Deny
		out.Reason = fmt.Sprintf("%s is not granted at tier %s", action, d.Tier)
		if d.Capped {
			out.Reason += fmt.Sprintf(" (capped from %s by reputation debt)", d.RawTier)
		}
	}
	return out
}

func permitted(p tiering.Privileges, a Action) bool {
	switch a {
	case ActionRead:
		return true
	case ActionWriteScratch:
		return p.WriteScratch
	case ActionEdit:
		return p.Edit
	case ActionWriteProduction:
		return p.WriteProduction
	case ActionGitWrite:
		return p.GitWrite
	case ActionGitRewrite:
		return p.RewriteHistory
	}
	return false
}
