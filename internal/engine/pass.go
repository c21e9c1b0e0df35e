package engine

import (
	"context"
	"log/slog"

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/reputation"
)

// parts is the triggered delta split by how it is scaled and accounted.
type parts struct {
	decrement int // all reducers
	integrity int // INTEGRITY reducers, a subset of decrement
	increment int // increasers other than streak bonuses
	streak    int // streak bonuses
}

func (p parts) raw() int { return p.decrement + p.increment + p.streak }

// scalePart multiplies v by m, truncating toward zero. A non-zero part never
// scales away entirely.
func scalePart(v int, m float64) int {
	if v == 0 {
		return 0
	}
	s := int(float64(v) * m)
	if s == 0 {
		if v < 0 {
			return -1
		}
		return 1
	}
	return s
}

// Evaluate runs one evaluation pass for ctx against state, mutating state in
// place. It never fails: predicate faults come back as diagnostics and the
// pass completes without the faulty signal.
func (e *Engine) Evaluate(ctx models.Context, state *models.SessionState) Result {
	state.Normalize()
	old := state.Confidence
	oldDecision := e.policy.Decide(old, state.ReputationDebt)
	state.TurnCount++

	res := Result{
		SessionID:     state.SessionID,
		Turn:          state.TurnCount,
		OldConfidence: old,
		OldTier:       oldDecision.Tier,
		Triggered:     []string{},
	}
	res.ApprovalsExpired = e.expireApprovals(state)

	triggered, diags := e.catalog.Evaluate(ctx, *state)
	res.Diagnostics = append(res.Diagnostics, diags...)

	var p parts
	for _, t := range triggered {
		res.Triggered = append(res.Triggered, t.Name)
		switch {
		case t.IsReducer():
			p.decrement += t.Delta
			if t.Penalty == models.PenaltyIntegrity {
				p.integrity += t.Delta
			}
		case t.RequiresApproval:
			state.PendingApprovals = append(state.PendingApprovals, models.PendingApproval{
				Signal: t.Name,
				Delta:  t.Delta,
				Turn:   state.TurnCount,
			})
			res.Pending = append(res.Pending, t.Name)
		case t.StreakBonus:
			p.streak += t.Delta
		default:
			p.increment += t.Delta
		}
	}
	res.RawDelta = p.raw()

	approved := 0
	if ctx.ApprovalGranted {
		approved = e.takeApprovals(state)
		p.increment += approved
	}

	res.PenaltyMultiplier = e.zones.Penalty.LookupInt(old) * e.zones.WindowPenalty.Lookup(ctx.WindowPct)
	res.BoostMultiplier = e.zones.Boost.LookupInt(old) * e.zones.WindowBoost.Lookup(ctx.WindowPct)

	dec := scalePart(p.decrement, res.PenaltyMultiplier)
	integ := scalePart(p.integrity, res.PenaltyMultiplier)
	inc := scalePart(p.increment, res.BoostMultiplier)
	bonus := scalePart(p.streak, res.BoostMultiplier)
	if approved > 0 {
		res.ApprovalsApplied = scalePart(approved, res.BoostMultiplier)
	}

	step := e.decay.Next(state.DecayAccumulator, state.TurnCount, old, res.PenaltyMultiplier)
	state.DecayAccumulator = step.Accumulator
	res.Decay = step.Points

	base := dec + inc - step.Points
	bonus = reputation.StreakRoom(*state, old+base, bonus)
	res.ScaledDelta = base + bonus

	res.Applied, res.RateLimited = e.limiter.Clamp(res.ScaledDelta, state.RecentDeltas)
	state.Confidence = models.ClampConfidence(old + res.Applied)
	res.NewConfidence = state.Confidence

	for _, t := range triggered {
		e.catalog.Cooldowns().Mark(state, t.Name, t.Cooldown)
	}
	switch {
	case ctx.ToolFailed:
		state.ConsecutiveFailures++
	case ctx.ToolName != "":
		state.ConsecutiveFailures = 0
	}

	e.reputation.AdvanceStreak(state, triggered, &res.Reputation)
	e.reputation.RecordFloor(state, old, res.Applied, &res.Reputation)
	e.reputation.AdjustLock(state, integrityApplied(integ, old, state.Confidence), boostApplied(inc, res.Applied), &res.Reputation)
	state.RecentDeltas = e.limiter.Record(state.RecentDeltas, res.Applied)
	state.UpdatedAt = e.nowFunc().UTC()

	e.finish(&res, *state)
	return res
}

// Approve applies every pending approval outside a tool event. It does not
// advance the turn, run signals or decay; the boost is scaled and capped
// exactly as in a pass.
func (e *Engine) Approve(state *models.SessionState) Result {
	state.Normalize()
	old := state.Confidence
	res := Result{
		SessionID:     state.SessionID,
		Turn:          state.TurnCount,
		OldConfidence: old,
		OldTier:       e.policy.Decide(old, state.ReputationDebt).Tier,
		Triggered:     []string{},
	}
	res.ApprovalsExpired = e.expireApprovals(state)

	approved := e.takeApprovals(state)
	res.RawDelta = approved
	res.BoostMultiplier = e.zones.Boost.LookupInt(old) * e.zones.WindowBoost.Lookup(0)
	res.PenaltyMultiplier = e.zones.Penalty.LookupInt(old) * e.zones.WindowPenalty.Lookup(0)
	inc := scalePart(approved, res.BoostMultiplier)
	res.ApprovalsApplied = inc
	res.ScaledDelta = inc

	res.Applied, res.RateLimited = e.limiter.Clamp(inc, state.RecentDeltas)
	state.Confidence = models.ClampConfidence(old + res.Applied)
	res.NewConfidence = state.Confidence

	e.reputation.AdjustLock(state, 0, boostApplied(inc, res.Applied), &res.Reputation)
	if approved > 0 {
		state.RecentDeltas = e.limiter.Record(state.RecentDeltas, res.Applied)
	}
	state.UpdatedAt = e.nowFunc().UTC()

	e.finish(&res, *state)
	return res
}

// expireApprovals drops pending approvals older than the TTL.
func (e *Engine) expireApprovals(state *models.SessionState) int {
	kept := state.PendingApprovals[:0]
	expired := 0
	for _, pa := range state.PendingApprovals {
		if state.TurnCount-pa.Turn > e.approvalTTL {
			expired++
			continue
		}
		kept = append(kept, pa)
	}
	state.PendingApprovals = kept
	return expired
}

// takeApprovals empties the pending list and returns its total.
func (e *Engine) takeApprovals(state *models.SessionState) int {
	total := state.PendingTotal()
	state.PendingApprovals = []models.PendingApproval{}
	return total
}

// integrityApplied is the part of a scaled INTEGRITY loss that actually
// reached the score.
func integrityApplied(integ, before, after int) int {
	if integ >= 0 || after >= before {
		return 0
	}
	loss := -integ
	if drop := before - after; loss > drop {
		loss = drop
	}
	return loss
}

// boostApplied is the part of a scaled non-streak boost that survived the
// rate cap.
func boostApplied(inc, applied int) int {
	if inc <= 0 || applied <= 0 {
		return 0
	}
	if inc > applied {
		return applied
	}
	return inc
}

func (e *Engine) finish(res *Result, state models.SessionState) {
	res.Decision = e.policy.Decide(state.Confidence, state.ReputationDebt)
	res.Tier = res.Decision.Tier
	res.Streak = state.Streak
	res.ReputationDebt = state.ReputationDebt
	res.IntegrityLock = state.IntegrityLock
	res.Message = res.render()

	if e.logger != nil {
		e.logger.LogAttrs(context.Background(), slog.LevelDebug, "evaluation pass",
			slog.String("session", state.SessionID),
			slog.Int("turn", res.Turn),
			slog.Int("old", res.OldConfidence),
			slog.Int("new", res.NewConfidence),
			slog.Int("applied", res.Applied),
			slog.Any("triggered", res.Triggered),
			slog.String("tier", res.Tier.String()),
		)
		for _, d := range res.Diagnostics {
			e.logger.Warn("degraded pass", "session", state.SessionID, "kind", string(d.Kind), "source", d.Source, "error", d.Message)
		}
	}
	if e.decisions != nil {
		e.decisions.Log(map[string]any{
			"event":          "evaluation_pass",
			"session_id":     state.SessionID,
			"turn":           res.Turn,
			"old_confidence": res.OldConfidence,
			"new_confidence": res.NewConfidence,
			"raw_delta":      res.RawDelta,
			"scaled_delta":   res.ScaledDelta,
			"applied":        res.Applied,
			"rate_limited":   res.RateLimited,
			"decay":          res.Decay,
			"triggered":      res.Triggered,
			"pending":        res.Pending,
			"tier":           res.Tier.String(),
			"diagnostics":    len(res.Diagnostics),
		})
	}
}
