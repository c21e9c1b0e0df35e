package simulation

import "github.com/nvandessel/trustloop/internal/models"

// Step builders for the common events. They return values, so callers can
// set Label or Repeat on the result.

// BashFailure is a shell command that exited non-zero.
func BashFailure(command string) Step {
	code := 1
	return Step{Tool: "Bash", Command: command, Failed: true, ExitCode: &code}
}

// BashSuccess is a shell command that exited zero with output.
func BashSuccess(command, output string) Step {
	code := 0
	return Step{Tool: "Bash", Command: command, Output: output, ExitCode: &code}
}

// ReadFile is a successful Read of path.
func ReadFile(path string) Step {
	return Step{Tool: "Read", FilePath: path, Output: "package main"}
}

// Prompt is a user prompt.
func Prompt(text string) Step {
	return Step{Prompt: text}
}

// Reply is a quiet tool event whose pass sees the given assistant text.
func Reply(text string) Step {
	return Step{Tool: "TodoWrite", Assistant: text}
}

// Gate asks the gate about a Bash command without running a pass.
func Gate(command string) Step {
	return Step{Event: models.EventPreToolUse, Tool: "Bash", Command: command}
}

// Idle is a neutral prompt: no signal fires, only decay applies.
func Idle(n int) Step {
	return Step{Prompt: "continue", Repeat: n}
}

func intPtr(v int) *int { return &v }
