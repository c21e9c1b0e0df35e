// Package tiering maps a confidence score to one of six contiguous trust
// tiers and the privileges that tier grants. It only decides; gate
// collaborators enforce.
package tiering

import (
	"fmt"
	"strings"
)

// Tier is one of six confidence bands, ordered from least to most trusted.
type Tier int

const (
	TierIgnorance Tier = iota
	TierHypothesis
	TierWorking
	TierCertainty
	TierTrusted
	TierExpert
)

// NumTiers is the number of tiers. Boundary tables must have this many entries.
const NumTiers = 6

var tierNames = [NumTiers]string{"IGNORANCE", "HYPOTHESIS", "WORKING", "CERTAINTY", "TRUSTED", "EXPERT"}

// String returns the upper-case tier name.
func (t Tier) String() string {
	if t < 0 || int(t) >= NumTiers {
		return "UNKNOWN"
	}
	return tierNames[t]
}

// ParseTier parses a tier name, case-insensitively.
func ParseTier(s string) (Tier, error) {
	for i, n := range tierNames {
		if strings.EqualFold(n, s) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Mode is how a gate treats actions the tier does not permit.
type Mode string

const (
	// ModeEnforce hard-denies disallowed actions.
	ModeEnforce Mode = "enforce"
	// ModeWarn lets disallowed actions through with a warning.
	ModeWarn Mode = "warn"
	// ModeDisabled skips prerequisite checks. Irrevocable patterns still apply.
	ModeDisabled Mode = "disabled"
)

// Privileges is the action set a tier grants.
type Privileges struct {
	WriteScratch    bool `json:"can_write_scratch"`
	Edit            bool `json:"can_edit"`
	WriteProduction bool `json:"can_write_production"`
	GitWrite        bool `json:"can_git_write"`
	// RewriteHistory covers force pushes, hard resets, rebases and amends.
	RewriteHistory bool `json:"can_rewrite_history"`
}

// privilegeRows are fixed by tier position.
var privilegeRows = [NumTiers]struct {
	priv Privileges
	mode Mode
}{
	TierIgnorance:  {Privileges{WriteScratch: true}, ModeEnforce},
	TierHypothesis: {Privileges{WriteScratch: true, Edit: true}, ModeEnforce},
	TierWorking:    {Privileges{WriteScratch: true, Edit: true, WriteProduction: true}, ModeEnforce},
	TierCertainty:  {Privileges{WriteScratch: true, Edit: true, WriteProduction: true, GitWrite: true}, ModeEnforce},
	TierTrusted:    {Privileges{WriteScratch: true, Edit: true, WriteProduction: true, GitWrite: true}, ModeWarn},
	TierExpert:     {Privileges{WriteScratch: true, Edit: true, WriteProduction: true, GitWrite: true, RewriteHistory: true}, ModeDisabled},
}

// PrivilegesFor returns the fixed privilege row of t.
func PrivilegesFor(t Tier) Privileges {
	if t < 0 || int(t) >= NumTiers {
		return Privileges{}
	}
	return privilegeRows[t].priv
}

// ModeFor returns the enforcement mode of t.
func ModeFor(t Tier) Mode {
	if t < 0 || int(t) >= NumTiers {
		return ModeEnforce
	}
	return privilegeRows[t].mode
}

// DefaultBoundaries are the lower bounds of each tier.
func DefaultBoundaries() []int {
	return []int{0, 31, 51, 71, 86, 95}
}
