package zones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSetValidates(t *testing.T) {
	require.NoError(t, DefaultSet().Validate())
}

func TestCooldownLookup(t *testing.T) {
	tbl := DefaultCooldown()
	tests := []struct {
		confidence int
		want       float64
	}{
		{0, 0.5},
		{50, 0.5},
		{51, 0.75},
		{70, 0.75},
		{71, 1.0},
		{85, 1.0},
		{86, 1.5},
		{100, 1.5},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, tbl.LookupInt(tt.confidence), "confidence %d", tt.confidence)
	}
}

func TestPenaltyAndBoostMoveOppositely(t *testing.T) {
	pen, boost := DefaultPenalty(), DefaultBoost()
	for c := 1; c <= 100; c++ {
		assert.GreaterOrEqual(t, pen.LookupInt(c), pen.LookupInt(c-1), "penalty must not fall at %d", c)
		assert.LessOrEqual(t, boost.LookupInt(c), boost.LookupInt(c-1), "boost must not rise at %d", c)
	}
	assert.Equal(t, 0.75, pen.LookupInt(70))
	assert.Equal(t, 2.0, pen.LookupInt(96))
}

func TestFatigueNonDecreasing(t *testing.T) {
	f := DefaultFatigue()
	for turn := 1; turn < 500; turn++ {
		require.GreaterOrEqual(t, f.LookupInt(turn), f.LookupInt(turn-1))
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		want  error
	}{
		{"empty", Table{Name: "x"}, ErrEmpty},
		{"gap", Table{Name: "x", Bands: []Band{{Lower: 10, Multiplier: 1}}}, ErrGap},
		{"unordered", Table{Name: "x", Bands: []Band{{Lower: 0, Multiplier: 1}, {Lower: 0, Multiplier: 2}}}, ErrUnordered},
		{"zero multiplier", Table{Name: "x", Bands: []Band{{Lower: 0, Multiplier: 0}}}, ErrMultiplier},
		{
			"direction",
			Table{Name: "x", Direction: NonDecreasing, Bands: []Band{{Lower: 0, Multiplier: 2}, {Lower: 5, Multiplier: 1}}},
			ErrDirection,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.table.Validate(), tt.want)
		})
	}
}

func TestLookupBelowFirstBand(t *testing.T) {
	tbl := Table{Name: "x", Min: -10, Bands: []Band{{Lower: -10, Multiplier: 3}, {Lower: 0, Multiplier: 1}}}
	require.NoError(t, tbl.Validate())
	assert.Equal(t, 3.0, tbl.Lookup(-50))
	assert.Equal(t, 1.0, tbl.Lookup(0))
}

func TestString(t *testing.T) {
	s := Table{Name: "t", Bands: []Band{{Lower: 0, Multiplier: 1}, {Lower: 50, Multiplier: 2}}}.String()
	assert.Equal(t, "t: [0,50)=1 [50,inf)=2", s)
}
