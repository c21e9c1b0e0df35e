package ratelimit

import (
	"errors"
	"fmt"
)

// DefaultPerTurnCap is the largest confidence swing allowed in one pass.
const DefaultPerTurnCap = 20

// ErrDeltaConfig is returned for unusable DeltaConfig values.
var ErrDeltaConfig = errors.New("invalid delta limiter config")

// DeltaConfig configures a DeltaLimiter.
type DeltaConfig struct {
	// PerTurnCap bounds |delta| of a single pass.
	PerTurnCap int `json:"per_turn_cap" yaml:"per_turn_cap"`
	// Window enables the rolling variant when > 0: the sum of the last
	// Window applied deltas is bounded by WindowCap.
	Window    int `json:"window" yaml:"window"`
	WindowCap int `json:"window_cap" yaml:"window_cap"`
}

// DefaultDeltaConfig returns the stateless per-turn cap.
func DefaultDeltaConfig() DeltaConfig {
	return DeltaConfig{PerTurnCap: DefaultPerTurnCap}
}

// DeltaLimiter turns one-turn shocks into multi-turn trends by capping the
// net confidence delta of each pass. It holds no state of its own; the
// rolling variant reads and returns the history kept in SessionState.
type DeltaLimiter struct {
	cfg DeltaConfig
}

// NewDeltaLimiter validates cfg and returns a limiter.
func NewDeltaLimiter(cfg DeltaConfig) (*DeltaLimiter, error) {
	if cfg.PerTurnCap <= 0 {
		return nil, fmt.Errorf("per_turn_cap %d must be positive: %w", cfg.PerTurnCap, ErrDeltaConfig)
	}
	if cfg.Window < 0 {
		return nil, fmt.Errorf("window %d must not be negative: %w", cfg.Window, ErrDeltaConfig)
	}
	if cfg.Window > 0 && cfg.WindowCap <= 0 {
		return nil, fmt.Errorf("window_cap %d must be positive when window is set: %w", cfg.WindowCap, ErrDeltaConfig)
	}
	return &DeltaLimiter{cfg: cfg}, nil
}

// Config returns the limiter configuration.
func (l *DeltaLimiter) Config() DeltaConfig { return l.cfg }

// Clamp bounds delta by the per-turn cap and, for the rolling variant, by
// what the window still allows given recent applied deltas. It reports
// whether delta was reduced.
func (l *DeltaLimiter) Clamp(delta int, recent []int) (int, bool) {
	out := delta
	if out > l.cfg.PerTurnCap {
		out = l.cfg.PerTurnCap
	}
	if out < -l.cfg.PerTurnCap {
		out = -l.cfg.PerTurnCap
	}

	if l.cfg.Window > 0 {
		prior := sum(tail(recent, l.cfg.Window-1))
		if out > 0 {
			hi := l.cfg.WindowCap - prior
			if hi < 0 {
				hi = 0
			}
			if out > hi {
				out = hi
			}
		} else if out < 0 {
			lo := -l.cfg.WindowCap - prior
			if lo > 0 {
				lo = 0
			}
			if out < lo {
				out = lo
			}
		}
	}
	return out, out != delta
}

// Record appends applied to recent and trims the history to the window.
// The fixed-cap variant keeps no history.
func (l *DeltaLimiter) Record(recent []int, applied int) []int {
	if l.cfg.Window <= 0 {
		return []int{}
	}
	out := append(append([]int{}, tail(recent, l.cfg.Window-1)...), applied)
	return out
}

func tail(s []int, n int) []int {
	if n <= 0 {
		return nil
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func sum(s []int) int {
	total := 0
	for _, v := range s {
		total += v
	}
	return total
}
