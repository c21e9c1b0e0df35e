package models

import "fmt"

// ImpactCategory classifies how a signal affects the success streak.
type ImpactCategory int

const (
	// ImpactFailure marks a concrete failure (tool error, failing tests).
	ImpactFailure ImpactCategory = iota
	// ImpactBehavioral marks a process or integrity violation by the agent.
	ImpactBehavioral
	// ImpactAmbient marks a background cost that does not break the streak.
	ImpactAmbient
)

// String returns the upper-case name used in configuration and output.
func (c ImpactCategory) String() string {
	switch c {
	case ImpactFailure:
		return "FAILURE"
	case ImpactBehavioral:
		return "BEHAVIORAL"
	case ImpactAmbient:
		return "AMBIENT"
	default:
		return "UNKNOWN"
	}
}

// BreaksStreak reports whether a trigger of this category resets the streak.
func (c ImpactCategory) BreaksStreak() bool {
	return c == ImpactFailure || c == ImpactBehavioral
}

// ParseImpactCategory parses FAILURE, BEHAVIORAL or AMBIENT.
func ParseImpactCategory(s string) (ImpactCategory, error) {
	switch s {
	case "FAILURE", "failure":
		return ImpactFailure, nil
	case "BEHAVIORAL", "behavioral":
		return ImpactBehavioral, nil
	case "AMBIENT", "ambient":
		return ImpactAmbient, nil
	}
	return 0, fmt.Errorf("unknown impact category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c ImpactCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ImpactCategory) UnmarshalText(b []byte) error {
	v, err := ParseImpactCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// PenaltyClass distinguishes recoverable process penalties from integrity
// penalties, which streak bonuses cannot pay back.
type PenaltyClass int

const (
	PenaltyProcess PenaltyClass = iota
	PenaltyIntegrity
)

// String returns PROCESS or INTEGRITY.
func (p PenaltyClass) String() string {
	if p == PenaltyIntegrity {
		return "INTEGRITY"
	}
	return "PROCESS"
}

// MarshalText implements encoding.TextMarshaler.
func (p PenaltyClass) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PenaltyClass) UnmarshalText(b []byte) error {
	switch string(b) {
	case "PROCESS", "process", "":
		*p = PenaltyProcess
	case "INTEGRITY", "integrity":
		*p = PenaltyIntegrity
	default:
		return fmt.Errorf("unknown penalty class %q", string(b))
	}
	return nil
}

// SignalDefinition is the immutable description of a Reducer or Increaser.
type SignalDefinition struct {
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Delta            int            `json:"delta"`
	BaseCooldown     int            `json:"base_cooldown"`
	Impact           ImpactCategory `json:"impact"`
	Penalty          PenaltyClass   `json:"penalty"`
	RequiresApproval bool           `json:"requires_approval,omitempty"`
	StreakBonus      bool           `json:"streak_bonus,omitempty"`
}

// IsReducer reports whether the signal lowers confidence.
func (d SignalDefinition) IsReducer() bool {
	return d.Delta < 0
}

// Triggered is a signal that fired in an evaluation pass.
type Triggered struct {
	SignalDefinition
	// Cooldown is the effective cooldown at the moment the signal fired.
	Cooldown int `json:"cooldown"`
}
