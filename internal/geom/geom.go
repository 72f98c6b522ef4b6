// Package geom provides the primitives of the time-position plane:
// points, traffic states, and the interfaces (line boundaries) that
// separate states in a shockwave diagram.
//
// All floating-point comparisons in the diagram go through EqualWithin
// so that point equality, state equality, and slope parallelism share a
// single absolute tolerance.
package geom

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	// Tol is the absolute tolerance used for every comparison in the
	// diagram. Accumulated arithmetic error stays well inside it for the
	// magnitudes a diagram works with (seconds, meters, veh/m, veh/s).
	Tol = 1e-4

	// ResolveEps is the forward time offset applied when resolving the
	// state at a point. It breaks ties at interface endpoints: an
	// interface ending exactly at the query time does not count, one
	// starting there does.
	ResolveEps = 1e-4

	// hashScale converts a coordinate to its rounded map-key
	// representation. Rounding to four digits is consistent with Tol, so
	// tolerantly-equal values collide in maps.
	hashScale = 1e4

	// LowerBoundPad is how far (in seconds) an unbounded interface is
	// extended behind time zero so it still renders slightly off-screen.
	LowerBoundPad = 1
)

// EqualWithin reports whether a and b are equal within Tol.
func EqualWithin(a, b float64) bool {
	return scalar.EqualWithinAbs(a, b, Tol)
}

func roundKey(v float64) int64 {
	return int64(math.Round(v * hashScale))
}

// Side selects which side of a boundary a query refers to. Positions
// greater than an interface line (at equal time) are above it.
type Side int

const (
	Below Side = iota
	Above
)

func (s Side) String() string {
	if s == Above {
		return "above"
	}
	return "below"
}
