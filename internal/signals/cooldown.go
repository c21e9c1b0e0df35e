package signals

import (
	"math"

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/zones"
)

// CooldownRegistry computes zone-scaled cooldowns over the per-signal
// last-trigger turns stored in SessionState.Cooldowns.
type CooldownRegistry struct {
	table zones.Table
}

// NewCooldownRegistry creates a registry scaling cooldowns by table.
func NewCooldownRegistry(table zones.Table) CooldownRegistry {
	return CooldownRegistry{table: table}
}

// Multiplier returns the cooldown zone multiplier at confidence.
func (r CooldownRegistry) Multiplier(confidence int) float64 {
	return r.table.LookupInt(confidence)
}

// Effective returns max(1, round(base * multiplier(confidence))).
func (r CooldownRegistry) Effective(def models.SignalDefinition, confidence int) int {
	k := int(math.Round(float64(def.BaseCooldown) * r.Multiplier(confidence)))
	if k < 1 {
		return 1
	}
	return k
}

// Ready reports whether def may fire at state.TurnCount. A signal that fired
// at turn T with effective cooldown K stays blocked until T+K, using the
// larger of K at fire time and K at the current zone.
func (r CooldownRegistry) Ready(def models.SignalDefinition, state models.SessionState) bool {
	last, ok := state.Cooldowns[def.Name]
	if !ok {
		return true
	}
	k := r.Effective(def, state.Confidence)
	if w := state.CooldownWindows[def.Name]; w > k {
		k = w
	}
	return state.TurnCount-last >= k
}

// Remaining returns how many turns def must still wait, or 0 when ready.
func (r CooldownRegistry) Remaining(def models.SignalDefinition, state models.SessionState) int {
	last, ok := state.Cooldowns[def.Name]
	if !ok {
		return 0
	}
	k := r.Effective(def, state.Confidence)
	if w := state.CooldownWindows[def.Name]; w > k {
		k = w
	}
	rem := last + k - state.TurnCount
	if rem < 0 {
		return 0
	}
	return rem
}

// Mark records that name fired at the current turn with effective cooldown k.
func (r CooldownRegistry) Mark(state *models.SessionState, name string, k int) {
	if state.Cooldowns == nil {
		state.Cooldowns = make(map[string]int)
	}
	if state.CooldownWindows == nil {
		state.CooldownWindows = make(map[string]int)
	}
	state.Cooldowns[name] = state.TurnCount
	state.CooldownWindows[name] = k
}
