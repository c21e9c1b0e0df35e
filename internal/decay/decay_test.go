package decay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/trustloop/internal/zones"
)

func newModel(t *testing.T, cfg Config) *Model {
	t.Helper()
	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

func TestAmount(t *testing.T) {
	m := newModel(t, DefaultConfig())
	tests := []struct {
		name       string
		turn       int
		confidence int
		want       float64
	}{
		{"early, working", 1, 70, 0.4},
		{"early, high trust", 1, 85, 0.7},
		{"turn 30 fatigue", 30, 70, 0.5},
		{"turn 60 fatigue", 60, 70, 0.6},
		{"turn 150 high trust", 150, 90, 1.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.Amount(tt.turn, tt.confidence), 1e-9)
		})
	}
}

func TestFatigueNonDecreasing(t *testing.T) {
	m := newModel(t, DefaultConfig())
	prev := m.FatigueMultiplier(0)
	for turn := 1; turn <= 300; turn++ {
		f := m.FatigueMultiplier(turn)
		require.GreaterOrEqual(t, f, prev, "turn %d", turn)
		prev = f
	}
}

func TestNext_CarriesFraction(t *testing.T) {
	m := newModel(t, DefaultConfig())

	acc := 0.0
	applied := 0
	for turn := 1; turn <= 10; turn++ {
		step := m.Next(acc, turn, 70, 0.25) // 0.1 per pass
		assert.GreaterOrEqual(t, step.Accumulator, 0.0)
		assert.Less(t, step.Accumulator, 1.0)
		applied += step.Points
		acc = step.Accumulator
	}
	assert.Equal(t, 1, applied, "ten passes of 0.1 make one point")
	assert.InDelta(t, 0.0, acc, 1e-9)
}

func TestNext_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	m := newModel(t, cfg)

	step := m.Next(0.6, 200, 99, 2.0)
	assert.Equal(t, 0, step.Points)
	assert.Equal(t, 0.6, step.Accumulator)
	assert.Zero(t, step.Amount)
}

func TestNext_LongSessionDrainsMore(t *testing.T) {
	m := newModel(t, DefaultConfig())

	drain := func(from, to int) int {
		acc, total := 0.0, 0
		for turn := from; turn <= to; turn++ {
			s := m.Next(acc, turn, 60, 1.0)
			acc = s.Accumulator
			total += s.Points
		}
		return total
	}
	assert.Greater(t, drain(151, 200), drain(1, 50))
}

func TestNew_Rejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Base = -1
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Fatigue = zones.DefaultWindowBoost()
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Fatigue.Bands = nil
	_, err = New(cfg)
	assert.ErrorIs(t, err, zones.ErrEmpty)
}
