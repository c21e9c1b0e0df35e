package activation

import (
	"github.com/nvandessel/trustloop/internal/constants"
	"github.com/nvandessel/trustloop/internal/models"
)

// maxRecentCommands bounds SessionState.RecentCommands.
const maxRecentCommands = 5

// Prepare returns c with the flags that depend on session history set. It
// runs before the evaluation pass and does not modify state.
func Prepare(state models.SessionState, c models.Context) models.Context {
	c.Flags.StuckLoopDetected = c.Flags.StuckLoopDetected || repeatsRecent(state.RecentCommands, c.Command)
	return c
}

// Track folds c into the context-tracking fields of state. It runs after the
// evaluation pass, so the next pass's signals see this event as history
// while this pass's signals saw the state before it.
func Track(state *models.SessionState, c models.Context) {
	if state.ToolCounts == nil {
		state.ToolCounts = make(map[string]int)
	}
	if c.ToolName != "" {
		state.ToolCounts[c.ToolName]++
	}

	switch {
	case c.IsWrite() && !c.ToolFailed:
		state.MarkEdited(c.FilePath)
		if c.ToolName == "Write" {
			state.MarkRead(c.FilePath)
		}
		state.ToolsSinceEdit = 0
		state.TestsPassing = false
	case c.ToolName != "":
		if c.ToolName == "Read" && !c.ToolFailed {
			state.MarkRead(c.FilePath)
		}
		state.ToolsSinceEdit++
	}

	if c.Flags.TestsPassed || c.Flags.TestsFailed {
		state.TestsRun = true
		state.TestsPassing = c.Flags.TestsPassed && !c.Flags.TestsFailed
	}

	if c.Command != "" {
		state.RecentCommands = append(state.RecentCommands, c.Command)
		if n := len(state.RecentCommands); n > maxRecentCommands {
			state.RecentCommands = append([]string{}, state.RecentCommands[n-maxRecentCommands:]...)
		}
	}
}

// repeatsRecent reports whether cmd would be the StuckLoopRepeats-th
// identical command in a row.
func repeatsRecent(recent []string, cmd string) bool {
	need := constants.StuckLoopRepeats - 1
	if cmd == "" || len(recent) < need {
		return false
	}
	for _, prev := range recent[len(recent)-need:] {
		if prev != cmd {
			return false
		}
	}
	return true
}
