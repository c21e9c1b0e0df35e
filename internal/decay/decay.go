// Package decay models background confidence drift ("attention fatigue").
//
// Every evaluation pass accrues a small fractional drain that grows with
// session length. Fractions are carried in an accumulator so that decay is
// never lost to rounding and never applied twice.
package decay

import (
	"fmt"
	"math"

	"github.com/nvandessel/trustloop/internal/zones"
)

// DefaultBase is the per-pass drain before fatigue scaling.
const DefaultBase = 0.4

// DefaultHighTrustSurcharge is added per pass while confidence is at or
// above DefaultHighTrustThreshold.
const DefaultHighTrustSurcharge = 0.3

// DefaultHighTrustThreshold is the confidence at which the surcharge starts.
const DefaultHighTrustThreshold = 85

// epsilon absorbs float error so ten passes of 0.1 make exactly one point.
const epsilon = 1e-9

// Config configures a Model.
type Config struct {
	Enabled            bool        `json:"enabled" yaml:"enabled"`
	Base               float64     `json:"base" yaml:"base"`
	HighTrustSurcharge float64     `json:"high_trust_surcharge" yaml:"high_trust_surcharge"`
	HighTrustThreshold int         `json:"high_trust_threshold" yaml:"high_trust_threshold"`
	Fatigue            zones.Table `json:"-" yaml:"-"`
}

// DefaultConfig returns the enabled default model.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		Base:               DefaultBase,
		HighTrustSurcharge: DefaultHighTrustSurcharge,
		HighTrustThreshold: DefaultHighTrustThreshold,
		Fatigue:            zones.DefaultFatigue(),
	}
}

// Model computes per-pass decay. It holds no session state.
type Model struct {
	cfg Config
}

// Step is the outcome of one decay step.
type Step struct {
	// Amount is the fractional drain accrued this pass, already scaled.
	Amount float64 `json:"amount"`
	// Points is the whole number of confidence points to subtract now.
	Points int `json:"points"`
	// Accumulator is the carried fraction after this step, in [0,1).
	Accumulator float64 `json:"accumulator"`
}

// New validates cfg and returns a Model.
func New(cfg Config) (*Model, error) {
	if cfg.Base < 0 || cfg.HighTrustSurcharge < 0 {
		return nil, fmt.Errorf("decay rates must be non-negative (base %v, surcharge %v)", cfg.Base, cfg.HighTrustSurcharge)
	}
	if cfg.Fatigue.Direction != zones.NonDecreasing {
		return nil, fmt.Errorf("fatigue table must be non-decreasing")
	}
	if err := cfg.Fatigue.Validate(); err != nil {
		return nil, fmt.Errorf("fatigue table: %w", err)
	}
	return &Model{cfg: cfg}, nil
}

// Enabled reports whether the model drains confidence at all.
func (m *Model) Enabled() bool { return m.cfg.Enabled }

// FatigueMultiplier returns the session-length multiplier at turn.
func (m *Model) FatigueMultiplier(turn int) float64 {
	return m.cfg.Fatigue.LookupInt(turn)
}

// Amount returns the unscaled drain for one pass at turn and confidence.
func (m *Model) Amount(turn, confidence int) float64 {
	if !m.cfg.Enabled {
		return 0
	}
	f := m.FatigueMultiplier(turn)
	amount := m.cfg.Base * f
	if confidence >= m.cfg.HighTrustThreshold {
		amount += m.cfg.HighTrustSurcharge * f
	}
	return amount
}

// Next accrues one pass of decay onto accumulator, scaled by penaltyMult,
// and splits off the whole points to apply. A disabled model returns the
// accumulator unchanged.
func (m *Model) Next(accumulator float64, turn, confidence int, penaltyMult float64) Step {
	if accumulator < 0 || math.IsNaN(accumulator) {
		accumulator = 0
	}
	if !m.cfg.Enabled {
		return Step{Accumulator: accumulator}
	}
	amount := m.Amount(turn, confidence) * penaltyMult
	total := accumulator + amount
	whole := math.Floor(total + epsilon)
	rest := total - whole
	if rest < 0 {
		rest = 0
	}
	return Step{
		Amount:      amount,
		Points:      int(whole),
		Accumulator: rest,
	}
}
