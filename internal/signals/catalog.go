package signals

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/zones"
)

var (
	// ErrDuplicateSignal is returned when two signals share a name.
	ErrDuplicateSignal = errors.New("duplicate signal name")
	// ErrInvalidSignal is returned for definitions that break catalog rules.
	ErrInvalidSignal = errors.New("invalid signal definition")
	// ErrUnknownSignal is returned when an override names no registered signal.
	ErrUnknownSignal = errors.New("unknown signal")
)

// Override adjusts a builtin definition from configuration. Nil fields keep
// the builtin value.
type Override struct {
	Delta    *int `json:"delta,omitempty" yaml:"delta,omitempty"`
	Cooldown *int `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Options configure a Catalog.
type Options struct {
	// Cooldown is the zone table scaling base cooldowns.
	Cooldown zones.Table
	// Patterns are the compiled text patterns handed to predicates.
	Patterns *Patterns
	// Overrides adjust definitions by signal name.
	Overrides map[string]Override
}

// Catalog is the immutable, ordered registry of signals. It is built once
// and only read afterwards.
type Catalog struct {
	signals   []Signal
	byName    map[string]int
	cooldowns CooldownRegistry
	patterns  *Patterns
}

// NewCatalog validates and registers sigs in order, applying overrides.
func NewCatalog(sigs []Signal, opts Options) (*Catalog, error) {
	if err := opts.Cooldown.Validate(); err != nil {
		return nil, fmt.Errorf("cooldown table: %w", err)
	}
	patterns := opts.Patterns
	if patterns == nil {
		p, err := DefaultPatternConfig().Compile()
		if err != nil {
			return nil, err
		}
		patterns = p
	}

	c := &Catalog{
		byName:    make(map[string]int, len(sigs)),
		cooldowns: NewCooldownRegistry(opts.Cooldown),
		patterns:  patterns,
	}

	known := make(map[string]bool, len(sigs))
	for _, s := range sigs {
		known[s.Definition().Name] = true
	}
	for name := range opts.Overrides {
		if !known[name] {
			return nil, fmt.Errorf("override %q: %w", name, ErrUnknownSignal)
		}
	}

	for _, s := range sigs {
		def := s.Definition()
		if ov, ok := opts.Overrides[def.Name]; ok {
			if ov.Disabled {
				continue
			}
			reducer := def.IsReducer()
			if ov.Delta != nil {
				def.Delta = *ov.Delta
				if def.IsReducer() != reducer || def.Delta == 0 {
					return nil, fmt.Errorf("override %q delta %d changes signal kind: %w", def.Name, def.Delta, ErrInvalidSignal)
				}
			}
			if ov.Cooldown != nil {
				def.BaseCooldown = *ov.Cooldown
			}
			s = withDefinition(s, def)
		}
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		if _, dup := c.byName[def.Name]; dup {
			return nil, fmt.Errorf("%q: %w", def.Name, ErrDuplicateSignal)
		}
		c.byName[def.Name] = len(c.signals)
		c.signals = append(c.signals, s)
	}
	return c, nil
}

func validateDefinition(def models.SignalDefinition) error {
	switch {
	case def.Name == "":
		return fmt.Errorf("empty name: %w", ErrInvalidSignal)
	case def.Delta == 0:
		return fmt.Errorf("%q has zero delta: %w", def.Name, ErrInvalidSignal)
	case def.BaseCooldown < 0:
		return fmt.Errorf("%q has negative cooldown: %w", def.Name, ErrInvalidSignal)
	case def.IsReducer() && (def.RequiresApproval || def.StreakBonus):
		return fmt.Errorf("%q: reducers cannot require approval or be streak bonuses: %w", def.Name, ErrInvalidSignal)
	case !def.IsReducer() && def.Impact != models.ImpactAmbient:
		return fmt.Errorf("%q: increasers must be AMBIENT: %w", def.Name, ErrInvalidSignal)
	}
	return nil
}

// Len returns the number of registered signals.
func (c *Catalog) Len() int { return len(c.signals) }

// Definitions returns all definitions in registration order.
func (c *Catalog) Definitions() []models.SignalDefinition {
	defs := make([]models.SignalDefinition, len(c.signals))
	for i, s := range c.signals {
		defs[i] = s.Definition()
	}
	return defs
}

// Lookup returns the definition registered under name.
func (c *Catalog) Lookup(name string) (models.SignalDefinition, bool) {
	i, ok := c.byName[name]
	if !ok {
		return models.SignalDefinition{}, false
	}
	return c.signals[i].Definition(), true
}

// Cooldowns exposes the catalog's cooldown registry.
func (c *Catalog) Cooldowns() CooldownRegistry { return c.cooldowns }

// Patterns exposes the compiled patterns.
func (c *Catalog) Patterns() *Patterns { return c.patterns }

// Evaluate runs every ready signal's predicate against ctx and state, in
// registration order. Each signal fires at most once. A predicate that
// errors or panics counts as not triggered and yields a PredicateFault
// diagnostic; it never stops the other signals.
func (c *Catalog) Evaluate(ctx models.Context, state models.SessionState) ([]models.Triggered, []models.Diagnostic) {
	var (
		triggered []models.Triggered
		diags     []models.Diagnostic
	)
	for _, s := range c.signals {
		def := s.Definition()
		if !c.cooldowns.Ready(def, state) {
			continue
		}
		in := Input{Ctx: ctx, State: state.Clone(), Patterns: c.patterns}
		fired, err := safeCheck(s, in)
		if err != nil {
			diags = append(diags, models.NewDiagnostic(models.PredicateFault, def.Name, err))
			continue
		}
		if !fired {
			continue
		}
		triggered = append(triggered, models.Triggered{
			SignalDefinition: def,
			Cooldown:         c.cooldowns.Effective(def, state.Confidence),
		})
	}
	return triggered, diags
}

// safeCheck converts a predicate panic into an error.
func safeCheck(s Signal, in Input) (fired bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			fired = false
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	return s.Check(in)
}

// CooldownStatus describes one signal's cooldown at the current turn.
type CooldownStatus struct {
	Name      string `json:"name"`
	LastTurn  int    `json:"last_turn"`
	Effective int    `json:"effective"`
	Remaining int    `json:"remaining"`
}

// CoolingDown lists signals that are currently blocked, sorted by name.
func (c *Catalog) CoolingDown(state models.SessionState) []CooldownStatus {
	var out []CooldownStatus
	for _, s := range c.signals {
		def := s.Definition()
		rem := c.cooldowns.Remaining(def, state)
		if rem == 0 {
			continue
		}
		out = append(out, CooldownStatus{
			Name:      def.Name,
			LastTurn:  state.Cooldowns[def.Name],
			Effective: c.cooldowns.Effective(def, state.Confidence),
			Remaining: rem,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
