package models

// Hook event names as delivered by Claude Code.
const (
	EventPreToolUse       = "PreToolUse"
	EventPostToolUse      = "PostToolUse"
	EventUserPromptSubmit = "UserPromptSubmit"
	EventSessionStart     = "SessionStart"
	EventStop             = "Stop"
)

// Flags are booleans computed by upstream heuristics. Signals only read them.
type Flags struct {
	TestsPassed       bool `json:"tests_passed,omitempty" yaml:"tests_passed,omitempty"`
	TestsFailed       bool `json:"tests_failed,omitempty" yaml:"tests_failed,omitempty"`
	BuildSucceeded    bool `json:"build_succeeded,omitempty" yaml:"build_succeeded,omitempty"`
	BuildFailed       bool `json:"build_failed,omitempty" yaml:"build_failed,omitempty"`
	LintPassed        bool `json:"lint_passed,omitempty" yaml:"lint_passed,omitempty"`
	StuckLoopDetected bool `json:"stuck_loop_detected,omitempty" yaml:"stuck_loop_detected,omitempty"`
	LargeDiff         bool `json:"large_diff,omitempty" yaml:"large_diff,omitempty"`
	SerenaActivated   bool `json:"serena_activated,omitempty" yaml:"serena_activated,omitempty"`
	PlaceholderCode   bool `json:"placeholder_code,omitempty" yaml:"placeholder_code,omitempty"`
}

// Merge returns the union of f and o.
func (f Flags) Merge(o Flags) Flags {
	return Flags{
		TestsPassed:       f.TestsPassed || o.TestsPassed,
		TestsFailed:       f.TestsFailed || o.TestsFailed,
		BuildSucceeded:    f.BuildSucceeded || o.BuildSucceeded,
		BuildFailed:       f.BuildFailed || o.BuildFailed,
		LintPassed:        f.LintPassed || o.LintPassed,
		StuckLoopDetected: f.StuckLoopDetected || o.StuckLoopDetected,
		LargeDiff:         f.LargeDiff || o.LargeDiff,
		SerenaActivated:   f.SerenaActivated || o.SerenaActivated,
		PlaceholderCode:   f.PlaceholderCode || o.PlaceholderCode,
	}
}

// Context is the read-only input of one evaluation pass. It is rebuilt for
// every tool event and never persisted.
type Context struct {
	Event           string                 `json:"event,omitempty"`
	ToolName        string                 `json:"tool_name,omitempty"`
	ToolInput       map[string]interface{} `json:"tool_input,omitempty"`
	ToolResult      string                 `json:"tool_result,omitempty"`
	ToolFailed      bool                   `json:"tool_failed,omitempty"`
	ExitCode        *int                   `json:"exit_code,omitempty"`
	Command         string                 `json:"command,omitempty"`
	FilePath        string                 `json:"file_path,omitempty"`
	AssistantOutput string                 `json:"assistant_output,omitempty"`
	UserPrompt      string                 `json:"user_prompt,omitempty"`
	WindowPct       float64                `json:"window_pct,omitempty"`
	Flags           Flags                  `json:"flags"`
	ApprovalGranted bool                   `json:"approval_granted,omitempty"`
}

// IsEdit reports whether the tool modifies an existing file in place.
func (c Context) IsEdit() bool {
	switch c.ToolName {
	case "Edit", "MultiEdit", "NotebookEdit":
		return true
	}
	return false
}

// IsWrite reports whether the tool writes file content.
func (c Context) IsWrite() bool {
	return c.ToolName == "Write" || c.IsEdit()
}
