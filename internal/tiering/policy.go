package tiering

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrBoundaries is returned for tier boundary tables that do not partition
// [0,100] into six non-empty bands.
var ErrBoundaries = errors.New("invalid tier boundaries")

// Band is the inclusive confidence range of a tier.
type Band struct {
	Tier Tier `json:"tier"`
	Min  int  `json:"min"`
	Max  int  `json:"max"`
}

// Decision is the policy output for one confidence value.
type Decision struct {
	Tier       Tier       `json:"tier"`
	RawTier    Tier       `json:"raw_tier"`
	Privileges Privileges `json:"privileges"`
	Mode       Mode       `json:"mode"`
	// Capped is true when reputation debt lowered the tier.
	Capped bool `json:"capped,omitempty"`
}

// Policy is a pure confidence-to-tier mapping.
type Policy struct {
	lower       [NumTiers]int
	debtCap     Tier
	irrevocable []*regexp.Regexp
}

// PolicyConfig configures a Policy.
type PolicyConfig struct {
	// Boundaries are the six tier lower bounds, strictly increasing from 0.
	Boundaries []int
	// DebtCap is the highest tier reachable while reputation debt is owed.
	DebtCap Tier
	// Irrevocable are command patterns blocked at every tier.
	Irrevocable []string
}

// DefaultPolicyConfig returns the default boundaries, a TRUSTED debt cap and
// the builtin irrevocable patterns.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Boundaries:  DefaultBoundaries(),
		DebtCap:     TierTrusted,
		Irrevocable: DefaultIrrevocablePatterns(),
	}
}

// NewPolicy validates cfg and builds a Policy.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	if err := ValidateBoundaries(cfg.Boundaries); err != nil {
		return nil, err
	}
	if cfg.DebtCap < TierIgnorance || cfg.DebtCap >= TierExpert {
		return nil, fmt.Errorf("debt cap %s must be below EXPERT: %w", cfg.DebtCap, ErrBoundaries)
	}
	p := &Policy{debtCap: cfg.DebtCap}
	copy(p.lower[:], cfg.Boundaries)
	for i, expr := range cfg.Irrevocable {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("irrevocable pattern %d: %w", i, err)
		}
		p.irrevocable = append(p.irrevocable, re)
	}
	return p, nil
}

// ValidateBoundaries checks that b has six strictly increasing lower bounds,
// starts at 0 and leaves every tier non-empty within [0,100].
func ValidateBoundaries(b []int) error {
	if len(b) != NumTiers {
		return fmt.Errorf("want %d boundaries, got %d: %w", NumTiers, len(b), ErrBoundaries)
	}
	if b[0] != 0 {
		return fmt.Errorf("first boundary must be 0, got %d: %w", b[0], ErrBoundaries)
	}
	for i := 1; i < len(b); i++ {
		if b[i] <= b[i-1] {
			return fmt.Errorf("boundary %d (%d) not above %d: %w", i, b[i], b[i-1], ErrBoundaries)
		}
	}
	if b[NumTiers-1] > 100 {
		return fmt.Errorf("top boundary %d above 100: %w", b[NumTiers-1], ErrBoundaries)
	}
	return nil
}

// TierFor returns the raw tier for confidence. Values outside [0,100] are
// clamped first, so the function is total.
func (p *Policy) TierFor(confidence int) Tier {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	t := TierIgnorance
	for i := NumTiers - 1; i >= 0; i-- {
		if confidence >= p.lower[i] {
			t = Tier(i)
			break
		}
	}
	return t
}

// Decide returns the tier, privileges and mode for confidence, capping the
// tier while reputation debt is outstanding.
func (p *Policy) Decide(confidence, debt int) Decision {
	raw := p.TierFor(confidence)
	t := raw
	capped := false
	if debt > 0 && t > p.debtCap {
		t = p.debtCap
		capped = true
	}
	return Decision{
		Tier:       t,
		RawTier:    raw,
		Privileges: PrivilegesFor(t),
		Mode:       ModeFor(t),
		Capped:     capped,
	}
}

// Bands returns the inclusive range of every tier.
func (p *Policy) Bands() []Band {
	out := make([]Band, NumTiers)
	for i := 0; i < NumTiers; i++ {
		hi := 100
		if i+1 < NumTiers {
			hi = p.lower[i+1] - 1
		}
		out[i] = Band{Tier: Tier(i), Min: p.lower[i], Max: hi}
	}
	return out
}

// Irrevocable reports whether command matches a pattern blocked at every
// tier, returning the matching expression.
func (p *Policy) Irrevocable(command string) (string, bool) {
	if command == "" {
		return "", false
	}
	for _, re := range p.irrevocable {
		if re.MatchString(command) {
			return re.String(), true
		}
	}
	return "", false
}

// DefaultIrrevocablePatterns are destructive filesystem commands that no
// tier may run.
func DefaultIrrevocablePatterns() []string {
	return []string{
		`\brm\s+(-[a-zA-Z]*[rR][a-zA-Z]*\s+|--recursive\s+)+(-[a-zA-Z-]+\s+)*(/\*?|~/?\*?|\$HOME/?\*?|\*)(\s|;|&|\||$)`,
		`\bmkfs(\.[a-z0-9]+)?\b`,
		`\bdd\b.*\bof=/dev/(sd|hd|nvme|disk|xvd)`,
		`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
		`\bchmod\s+-R\s+0?777\s+/(\s|$)`,
		`>\s*/dev/(sd|nvme|disk)[a-z0-9]*\b`,
	}
}
