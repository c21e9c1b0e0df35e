// Package constants provides named constants shared by the hook, context and
// storage layers. Scoring tunables live with their packages and in config.
package constants

import "time"

// Hook input limits
const (
	// MaxHookInputBytes bounds how much hook JSON is read from stdin.
	MaxHookInputBytes = 4 << 20

	// MaxToolResultBytes is the tail of a tool response kept for heuristics.
	MaxToolResultBytes = 16 << 10
)

// Context gathering
const (
	// DefaultTranscriptTimeout bounds transcript reading for window usage.
	// On timeout window usage degrades to 0.
	DefaultTranscriptTimeout = 250 * time.Millisecond

	// DefaultContextWindowTokens is the model context size used to turn
	// transcript token counts into a percentage.
	DefaultContextWindowTokens = 200_000

	// StuckLoopRepeats is how many identical consecutive commands count as a
	// stuck loop.
	StuckLoopRepeats = 3

	// LargeDiffLines is the changed-line count above which an edit is a
	// large diff.
	LargeDiffLines = 300
)

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// HistoryDefaultLimit is how many passes `trustloop history` shows by default.
const HistoryDefaultLimit = 20
