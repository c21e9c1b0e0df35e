package zones

// Set groups every multiplier table the engine consults. The cooldown table
// and the penalty/boost tables are tuned independently.
type Set struct {
	Cooldown      Table
	Penalty       Table
	Boost         Table
	WindowPenalty Table
	WindowBoost   Table
	Fatigue       Table
}

// Validate validates every table in the set.
func (s Set) Validate() error {
	for _, t := range []Table{s.Cooldown, s.Penalty, s.Boost, s.WindowPenalty, s.WindowBoost, s.Fatigue} {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultCooldown scales base cooldowns by confidence: earned leniency above
// 85, maximum friction below 51.
func DefaultCooldown() Table {
	return Table{
		Name:      "cooldown",
		Direction: NonDecreasing,
		Bands: []Band{
			{Lower: 0, Multiplier: 0.5},
			{Lower: 51, Multiplier: 0.75},
			{Lower: 71, Multiplier: 1.0},
			{Lower: 86, Multiplier: 1.5},
		},
	}
}

// DefaultPenalty scales reducers by confidence zone.
func DefaultPenalty() Table {
	return Table{
		Name:      "penalty",
		Direction: NonDecreasing,
		Bands: []Band{
			{Lower: 0, Multiplier: 0.5},
			{Lower: 31, Multiplier: 0.6},
			{Lower: 51, Multiplier: 0.75},
			{Lower: 71, Multiplier: 1.0},
			{Lower: 86, Multiplier: 1.5},
			{Lower: 95, Multiplier: 2.0},
		},
	}
}

// DefaultBoost scales increasers by confidence zone; survival mode at the
// bottom amplifies recovery.
func DefaultBoost() Table {
	return Table{
		Name:      "boost",
		Direction: NonIncreasing,
		Bands: []Band{
			{Lower: 0, Multiplier: 1.5},
			{Lower: 31, Multiplier: 1.25},
			{Lower: 51, Multiplier: 1.0},
			{Lower: 86, Multiplier: 0.75},
			{Lower: 95, Multiplier: 0.5},
		},
	}
}

// DefaultWindowPenalty scales reducers by context-window usage percent.
func DefaultWindowPenalty() Table {
	return Table{
		Name:      "window_penalty",
		Direction: NonDecreasing,
		Bands: []Band{
			{Lower: 0, Multiplier: 1.0},
			{Lower: 40, Multiplier: 1.1},
			{Lower: 60, Multiplier: 1.25},
			{Lower: 80, Multiplier: 1.5},
		},
	}
}

// DefaultWindowBoost scales increasers by context-window usage percent.
func DefaultWindowBoost() Table {
	return Table{
		Name:      "window_boost",
		Direction: NonIncreasing,
		Bands: []Band{
			{Lower: 0, Multiplier: 1.0},
			{Lower: 40, Multiplier: 0.9},
			{Lower: 60, Multiplier: 0.75},
			{Lower: 80, Multiplier: 0.5},
		},
	}
}

// DefaultFatigue scales background decay by session length in turns.
func DefaultFatigue() Table {
	return Table{
		Name:      "fatigue",
		Direction: NonDecreasing,
		Bands: []Band{
			{Lower: 0, Multiplier: 1.0},
			{Lower: 30, Multiplier: 1.25},
			{Lower: 60, Multiplier: 1.5},
			{Lower: 100, Multiplier: 2.0},
			{Lower: 150, Multiplier: 2.5},
		},
	}
}

// DefaultSet returns all default tables.
func DefaultSet() Set {
	return Set{
		Cooldown:      DefaultCooldown(),
		Penalty:       DefaultPenalty(),
		Boost:         DefaultBoost(),
		WindowPenalty: DefaultWindowPenalty(),
		WindowBoost:   DefaultWindowBoost(),
		Fatigue:       DefaultFatigue(),
	}
}
