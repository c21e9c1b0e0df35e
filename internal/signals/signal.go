// Package signals defines the signal catalog: named, cooldown-gated
// predicates over a session Context that raise (Increasers) or lower
// (Reducers) the confidence score.
package signals

import (
	"github.com/nvandessel/trustloop/internal/models"
)

// Input is everything a predicate may look at. State is a clone; writing to
// it has no effect on the session.
type Input struct {
	Ctx      models.Context
	State    models.SessionState
	Patterns *Patterns
}

// Predicate decides whether a signal fires for the given input.
type Predicate func(in Input) (bool, error)

// Signal is a registered Reducer or Increaser.
type Signal interface {
	Definition() models.SignalDefinition
	Check(in Input) (bool, error)
}

type predicateSignal struct {
	def  models.SignalDefinition
	pred Predicate
}

func (s predicateSignal) Definition() models.SignalDefinition { return s.def }

func (s predicateSignal) Check(in Input) (bool, error) { return s.pred(in) }

// Reducer builds a confidence-lowering signal. The delta is stored negative
// regardless of the sign passed in.
func Reducer(name string, delta, cooldown int, impact models.ImpactCategory, penalty models.PenaltyClass, description string, pred Predicate) Signal {
	if delta > 0 {
		delta = -delta
	}
	return predicateSignal{
		def: models.SignalDefinition{
			Name:         name,
			Description:  description,
			Delta:        delta,
			BaseCooldown: cooldown,
			Impact:       impact,
			Penalty:      penalty,
		},
		pred: pred,
	}
}

// IncreaserOption tunes an increaser definition.
type IncreaserOption func(*models.SignalDefinition)

// WithApproval marks an increaser as needing explicit user confirmation.
func WithApproval() IncreaserOption {
	return func(d *models.SignalDefinition) { d.RequiresApproval = true }
}

// AsStreakBonus marks an increaser as a streak bonus, which cannot pay back
// integrity losses.
func AsStreakBonus() IncreaserOption {
	return func(d *models.SignalDefinition) { d.StreakBonus = true }
}

// Increaser builds a confidence-raising signal. Increasers are AMBIENT: they
// never break a streak.
func Increaser(name string, delta, cooldown int, description string, pred Predicate, opts ...IncreaserOption) Signal {
	if delta < 0 {
		delta = -delta
	}
	def := models.SignalDefinition{
		Name:         name,
		Description:  description,
		Delta:        delta,
		BaseCooldown: cooldown,
		Impact:       models.ImpactAmbient,
	}
	for _, opt := range opts {
		opt(&def)
	}
	return predicateSignal{def: def, pred: pred}
}

// withDefinition returns a copy of s carrying def. Used to apply overrides
// without touching the predicate.
func withDefinition(s Signal, def models.SignalDefinition) Signal {
	return predicateSignal{def: def, pred: s.Check}
}
