package models

import (
	"sort"
	"time"
)

// PendingApproval is a high-value boost that fired but waits for explicit
// user confirmation before it is applied.
type PendingApproval struct {
	Signal string `json:"signal"`
	Delta  int    `json:"delta"`
	Turn   int    `json:"turn"`
}

// SessionState is the full persisted state of one agent session.
//
// The engine owns the scoring fields (confidence through pending approvals).
// FilesRead, FilesEdited, ToolCounts, ToolsSinceEdit, TestsRun,
// TestsPassing and RecentCommands are
// maintained by the context collaborator before each evaluation pass; signals
// read them but the engine never writes them.
type SessionState struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Confidence          int            `json:"confidence"`
	TurnCount           int            `json:"turn_count"`
	DecayAccumulator    float64        `json:"decay_accumulator"`
	ReputationDebt      int            `json:"reputation_debt"`
	Streak              int            `json:"streak"`
	Cooldowns           map[string]int `json:"cooldowns"`
	ConsecutiveFailures int            `json:"consecutive_failures"`

	// CooldownWindows holds the effective cooldown each signal had when it
	// last fired.
	CooldownWindows map[string]int `json:"cooldown_windows"`

	RecentDeltas     []int             `json:"recent_deltas"`
	IntegrityLock    int               `json:"integrity_lock"`
	FloorHits        int               `json:"floor_hits"`
	PendingApprovals []PendingApproval `json:"pending_approvals"`

	FilesRead      []string       `json:"files_read"`
	FilesEdited    []string       `json:"files_edited"`
	ToolCounts     map[string]int `json:"tool_counts"`
	ToolsSinceEdit int            `json:"tools_since_edit"`
	TestsRun       bool           `json:"tests_run"`
	// TestsPassing is set by a passing test run and cleared by a failing
	// run or a later successful edit.
	TestsPassing bool `json:"tests_passing"`
	// RecentCommands holds the last few shell commands, oldest first.
	RecentCommands []string `json:"recent_commands"`
}

// NewSessionState returns a fresh state for sessionID starting at confidence.
func NewSessionState(sessionID string, confidence int) SessionState {
	now := time.Now().UTC()
	return SessionState{
		SessionID:        sessionID,
		CreatedAt:        now,
		UpdatedAt:        now,
		Confidence:       ClampConfidence(confidence),
		Cooldowns:        make(map[string]int),
		CooldownWindows:  make(map[string]int),
		RecentDeltas:     []int{},
		PendingApprovals: []PendingApproval{},
		FilesRead:        []string{},
		FilesEdited:      []string{},
		ToolCounts:       make(map[string]int),
		RecentCommands:   []string{},
	}
}

// Normalize replaces nil collections with empty ones so that a decoded state
// compares equal to the state it was encoded from.
func (s *SessionState) Normalize() {
	if s.Cooldowns == nil {
		s.Cooldowns = make(map[string]int)
	}
	if s.CooldownWindows == nil {
		s.CooldownWindows = make(map[string]int)
	}
	if s.RecentDeltas == nil {
		s.RecentDeltas = []int{}
	}
	if s.PendingApprovals == nil {
		s.PendingApprovals = []PendingApproval{}
	}
	if s.FilesRead == nil {
		s.FilesRead = []string{}
	}
	if s.FilesEdited == nil {
		s.FilesEdited = []string{}
	}
	if s.ToolCounts == nil {
		s.ToolCounts = make(map[string]int)
	}
	if s.RecentCommands == nil {
		s.RecentCommands = []string{}
	}
	s.Confidence = ClampConfidence(s.Confidence)
}

// Clone returns a deep copy. Signal predicates receive clones so they cannot
// mutate the state being scored.
func (s SessionState) Clone() SessionState {
	c := s
	c.Cooldowns = make(map[string]int, len(s.Cooldowns))
	for k, v := range s.Cooldowns {
		c.Cooldowns[k] = v
	}
	c.CooldownWindows = make(map[string]int, len(s.CooldownWindows))
	for k, v := range s.CooldownWindows {
		c.CooldownWindows[k] = v
	}
	c.ToolCounts = make(map[string]int, len(s.ToolCounts))
	for k, v := range s.ToolCounts {
		c.ToolCounts[k] = v
	}
	c.RecentDeltas = append([]int{}, s.RecentDeltas...)
	c.PendingApprovals = append([]PendingApproval{}, s.PendingApprovals...)
	c.FilesRead = append([]string{}, s.FilesRead...)
	c.FilesEdited = append([]string{}, s.FilesEdited...)
	c.RecentCommands = append([]string{}, s.RecentCommands...)
	return c
}

// HasRead reports whether path was read earlier in the session.
func (s SessionState) HasRead(path string) bool {
	return containsSorted(s.FilesRead, path)
}

// HasEdited reports whether path was edited earlier in the session.
func (s SessionState) HasEdited(path string) bool {
	return containsSorted(s.FilesEdited, path)
}

// MarkRead records path in FilesRead, keeping the slice sorted and unique.
func (s *SessionState) MarkRead(path string) {
	s.FilesRead = insertSorted(s.FilesRead, path)
}

// MarkEdited records path in FilesEdited, keeping the slice sorted and unique.
func (s *SessionState) MarkEdited(path string) {
	s.FilesEdited = insertSorted(s.FilesEdited, path)
}

// PendingTotal sums the deltas of all pending approvals.
func (s SessionState) PendingTotal() int {
	total := 0
	for _, p := range s.PendingApprovals {
		total += p.Delta
	}
	return total
}

// ClampConfidence bounds c to [MinConfidence, MaxConfidence].
func ClampConfidence(c int) int {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

const (
	// MinConfidence is the floor of the trust score.
	MinConfidence = 0
	// MaxConfidence is the ceiling of the trust score.
	MaxConfidence = 100
)

func containsSorted(list []string, v string) bool {
	i := sort.SearchStrings(list, v)
	return i < len(list) && list[i] == v
}

func insertSorted(list []string, v string) []string {
	if v == "" {
		return list
	}
	i := sort.SearchStrings(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
