// Package reputation keeps the slow-moving bookkeeping around the
// confidence score: the success streak, reputation debt owed after hitting
// the floor, and the integrity lock that stops streak bonuses from paying
// back integrity losses.
package reputation

import (
	"fmt"

	"github.com/nvandessel/trustloop/internal/models"
)

// DefaultRepayStreak is the streak length that repays one point of debt.
const DefaultRepayStreak = 10

// Config configures a Tracker.
type Config struct {
	// RepayStreak: each time the streak reaches a multiple of this, one
	// point of debt is repaid.
	RepayStreak int `json:"repay_streak" yaml:"repay_streak"`
	// MaxDebt bounds outstanding debt. Zero means unbounded.
	MaxDebt int `json:"max_debt" yaml:"max_debt"`
}

// DefaultConfig returns the default repayment schedule.
func DefaultConfig() Config {
	return Config{RepayStreak: DefaultRepayStreak, MaxDebt: 5}
}

// Tracker applies streak, debt and lock rules to a SessionState.
type Tracker struct {
	cfg Config
}

// New validates cfg and returns a Tracker.
func New(cfg Config) (*Tracker, error) {
	if cfg.RepayStreak <= 0 {
		return nil, fmt.Errorf("repay_streak %d must be positive", cfg.RepayStreak)
	}
	if cfg.MaxDebt < 0 {
		return nil, fmt.Errorf("max_debt %d must not be negative", cfg.MaxDebt)
	}
	return &Tracker{cfg: cfg}, nil
}

// Update summarises what one pass changed.
type Update struct {
	StreakBroken bool `json:"streak_broken,omitempty"`
	DebtIncurred bool `json:"debt_incurred,omitempty"`
	DebtRepaid   bool `json:"debt_repaid,omitempty"`
	LockAdded    int  `json:"lock_added,omitempty"`
	LockRepaid   int  `json:"lock_repaid,omitempty"`
}

// BreaksStreak reports whether any triggered signal is FAILURE or BEHAVIORAL.
func BreaksStreak(triggered []models.Triggered) bool {
	for _, t := range triggered {
		if t.Impact.BreaksStreak() {
			return true
		}
	}
	return false
}

// AdvanceStreak resets the streak when a FAILURE or BEHAVIORAL signal fired
// and otherwise extends it by one. Reaching a multiple of RepayStreak repays
// one point of debt.
func (t *Tracker) AdvanceStreak(state *models.SessionState, triggered []models.Triggered, u *Update) {
	if BreaksStreak(triggered) {
		state.Streak = 0
		u.StreakBroken = true
		return
	}
	state.Streak++
	if state.ReputationDebt > 0 && state.Streak%t.cfg.RepayStreak == 0 {
		state.ReputationDebt--
		u.DebtRepaid = true
	}
}

// RecordFloor charges debt when a negative delta would have taken
// confidence below 0, and tracks consecutive passes ending at the floor.
func (t *Tracker) RecordFloor(state *models.SessionState, before, applied int, u *Update) {
	if applied < 0 && before+applied < models.MinConfidence {
		if t.cfg.MaxDebt == 0 || state.ReputationDebt < t.cfg.MaxDebt {
			state.ReputationDebt++
			u.DebtIncurred = true
		}
	}
	if state.Confidence == models.MinConfidence {
		state.FloorHits++
	} else {
		state.FloorHits = 0
	}
}

// Ceiling is the highest confidence streak bonuses may lift the score to.
func Ceiling(state models.SessionState) int {
	c := models.MaxConfidence - state.IntegrityLock
	if c < models.MinConfidence {
		return models.MinConfidence
	}
	return c
}

// StreakRoom bounds a streak-bonus gain so that projected+gain stays at or
// below Ceiling. projected is the confidence the pass reaches without the
// bonus.
func StreakRoom(state models.SessionState, projected, gain int) int {
	if gain <= 0 {
		return 0
	}
	room := Ceiling(state) - projected
	if room < 0 {
		return 0
	}
	if gain > room {
		return room
	}
	return gain
}

// AdjustLock adds applied integrity losses to the lock and pays it back
// point for point from non-streak boosts.
func (t *Tracker) AdjustLock(state *models.SessionState, integrityLoss, boost int, u *Update) {
	if integrityLoss > 0 {
		state.IntegrityLock += integrityLoss
		u.LockAdded = integrityLoss
	}
	if boost > 0 && state.IntegrityLock > 0 {
		repay := boost
		if repay > state.IntegrityLock {
			repay = state.IntegrityLock
		}
		state.IntegrityLock -= repay
		u.LockRepaid = repay
	}
	if state.IntegrityLock > models.MaxConfidence {
		state.IntegrityLock = models.MaxConfidence
	}
}
