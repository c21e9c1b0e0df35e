// Package zones provides ordered, data-driven step tables that map a scalar
// (confidence, context-window usage, turn count) to a multiplier.
//
// A table is a list of (lower bound, multiplier) bands sorted by lower bound.
// A value belongs to the last band whose lower bound it reaches, so bands are
// contiguous by construction; Validate checks ordering and coverage.
package zones

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrEmpty is returned when a table has no bands.
	ErrEmpty = errors.New("zone table has no bands")
	// ErrUnordered is returned when lower bounds are not strictly increasing.
	ErrUnordered = errors.New("zone bounds not strictly increasing")
	// ErrGap is returned when the first band does not start at the domain minimum.
	ErrGap = errors.New("zone table does not cover domain minimum")
	// ErrMultiplier is returned for non-positive or non-finite multipliers.
	ErrMultiplier = errors.New("zone multiplier must be positive and finite")
	// ErrDirection is returned when a table violates its declared monotonicity.
	ErrDirection = errors.New("zone multipliers violate declared direction")
)

// Band is one step of a table.
type Band struct {
	Lower      float64 `json:"lower" yaml:"lower"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// Direction declares how multipliers must move as the input grows.
type Direction int

const (
	// Free places no monotonicity constraint.
	Free Direction = iota
	// NonDecreasing requires multipliers never to fall as the input grows.
	NonDecreasing
	// NonIncreasing requires multipliers never to rise as the input grows.
	NonIncreasing
)

// Table is an ordered step function.
type Table struct {
	Name      string
	Min       float64
	Direction Direction
	Bands     []Band
}

// Validate checks that the table is non-empty, ordered, covers Min and
// respects its direction.
func (t Table) Validate() error {
	if len(t.Bands) == 0 {
		return fmt.Errorf("%s: %w", t.Name, ErrEmpty)
	}
	if t.Bands[0].Lower > t.Min {
		return fmt.Errorf("%s: first band starts at %v, want <= %v: %w", t.Name, t.Bands[0].Lower, t.Min, ErrGap)
	}
	for i, b := range t.Bands {
		if b.Multiplier <= 0 || math.IsInf(b.Multiplier, 0) || math.IsNaN(b.Multiplier) {
			return fmt.Errorf("%s: band %d multiplier %v: %w", t.Name, i, b.Multiplier, ErrMultiplier)
		}
		if i == 0 {
			continue
		}
		prev := t.Bands[i-1]
		if b.Lower <= prev.Lower {
			return fmt.Errorf("%s: band %d lower %v after %v: %w", t.Name, i, b.Lower, prev.Lower, ErrUnordered)
		}
		switch t.Direction {
		case NonDecreasing:
			if b.Multiplier < prev.Multiplier {
				return fmt.Errorf("%s: band %d: %w", t.Name, i, ErrDirection)
			}
		case NonIncreasing:
			if b.Multiplier > prev.Multiplier {
				return fmt.Errorf("%s: band %d: %w", t.Name, i, ErrDirection)
			}
		}
	}
	return nil
}

// Lookup returns the multiplier for v. Values below the first band take the
// first band's multiplier.
func (t Table) Lookup(v float64) float64 {
	if len(t.Bands) == 0 {
		return 1.0
	}
	m := t.Bands[0].Multiplier
	for _, b := range t.Bands {
		if v < b.Lower {
			break
		}
		m = b.Multiplier
	}
	return m
}

// LookupInt is Lookup for integer inputs.
func (t Table) LookupInt(v int) float64 {
	return t.Lookup(float64(v))
}

// String renders the table as "[lo,hi)=m" segments for diagnostics.
func (t Table) String() string {
	var sb strings.Builder
	sb.WriteString(t.Name)
	sb.WriteString(":")
	for i, b := range t.Bands {
		hi := "inf"
		if i+1 < len(t.Bands) {
			hi = fmt.Sprintf("%g", t.Bands[i+1].Lower)
		}
		fmt.Fprintf(&sb, " [%g,%s)=%g", b.Lower, hi, b.Multiplier)
	}
	return sb.String()
}
