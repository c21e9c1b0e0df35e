package engine

import (
	"fmt"
	"strings"

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/reputation"
	"github.com/nvandessel/trustloop/internal/tiering"
)

// Result is the outcome of one evaluation pass.
type Result struct {
	SessionID     string `json:"session_id"`
	Turn          int    `json:"turn"`
	OldConfidence int    `json:"old_confidence"`
	NewConfidence int    `json:"new_confidence"`

	// RawDelta is the unscaled sum of contributing signal deltas.
	RawDelta int `json:"raw_delta"`
	// ScaledDelta is the delta after multipliers and decay, before the cap.
	ScaledDelta int `json:"scaled_delta"`
	// Applied is the delta after the rate cap, before clamping to [0,100].
	Applied     int  `json:"applied"`
	RateLimited bool `json:"rate_limited,omitempty"`

	PenaltyMultiplier float64 `json:"penalty_multiplier"`
	BoostMultiplier   float64 `json:"boost_multiplier"`
	Decay             int     `json:"decay"`

	OldTier  tiering.Tier     `json:"old_tier"`
	Tier     tiering.Tier     `json:"tier"`
	Decision tiering.Decision `json:"decision"`

	Triggered        []string `json:"triggered"`
	Pending          []string `json:"pending,omitempty"`
	ApprovalsApplied int      `json:"approvals_applied,omitempty"`
	ApprovalsExpired int      `json:"approvals_expired,omitempty"`

	Streak         int               `json:"streak"`
	ReputationDebt int               `json:"reputation_debt"`
	IntegrityLock  int               `json:"integrity_lock,omitempty"`
	Reputation     reputation.Update `json:"reputation"`

	Diagnostics []models.Diagnostic `json:"diagnostics,omitempty"`
	Message     string              `json:"message"`
}

// Changed reports whether confidence moved.
func (r Result) Changed() bool { return r.OldConfidence != r.NewConfidence }

// TierChanged reports whether the effective tier moved.
func (r Result) TierChanged() bool { return r.OldTier != r.Tier }

// Degraded reports whether any diagnostic was raised.
func (r Result) Degraded() bool { return len(r.Diagnostics) > 0 }

// AddDiagnostic appends d and refreshes the message.
func (r *Result) AddDiagnostic(d models.Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
	r.Message = r.render()
}

func (r Result) render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "confidence %d -> %d (%+d) %s", r.OldConfidence, r.NewConfidence, r.NewConfidence-r.OldConfidence, r.Tier)
	if r.Decision.Capped {
		fmt.Fprintf(&sb, " (capped from %s, debt %d)", r.Decision.RawTier, r.ReputationDebt)
	}
	if len(r.Triggered) > 0 {
		fmt.Fprintf(&sb, "; signals: %s", strings.Join(r.Triggered, ", "))
	}
	if r.Decay > 0 {
		fmt.Fprintf(&sb, "; decay -%d", r.Decay)
	}
	if r.RateLimited {
		fmt.Fprintf(&sb, "; rate limited %+d -> %+d", r.ScaledDelta, r.Applied)
	}
	if len(r.Pending) > 0 {
		fmt.Fprintf(&sb, "; awaiting approval: %s", strings.Join(r.Pending, ", "))
	}
	if r.ApprovalsApplied > 0 {
		fmt.Fprintf(&sb, "; approved +%d", r.ApprovalsApplied)
	}
	if r.TierChanged() {
		fmt.Fprintf(&sb, "; tier %s -> %s", r.OldTier, r.Tier)
	}
	for _, d := range r.Diagnostics {
		sb.WriteString("; ")
		sb.WriteString(d.String())
	}
	return sb.String()
}
