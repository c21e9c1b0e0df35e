package gate

import "github.com/nvandessel/trustloop/internal/models"

// HookOutput is the JSON a PreToolUse hook prints to stdout.
type HookOutput struct {
	HookSpecificOutput *PermissionOutput `json:"hookSpecificOutput,omitempty"`
	SystemMessage      string            `json:"systemMessage,omitempty"`
}

// PermissionOutput carries a PreToolUse permission decision.
type PermissionOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
}

// HookOutput renders d for Claude Code. Allowed calls produce no decision,
// so Claude Code's own permission flow still applies; the second return
// value is false when there is nothing to print.
func (d Decision) HookOutput() (HookOutput, bool) {
	switch d.Verdict {
	case Deny:
		return HookOutput{HookSpecificOutput: &PermissionOutput{
			HookEventName:            models.EventPreToolUse,
			PermissionDecision:       "deny",
			PermissionDecisionReason: "trustloop: " + d.Reason,
		}}, true
	case Warn:
		return HookOutput{SystemMessage: "trustloop: " + d.Reason}, true
	}
	return HookOutput{}, false
}
