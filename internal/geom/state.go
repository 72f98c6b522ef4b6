package geom

import (
	"fmt"
	"math"
)

// State is a homogeneous traffic condition: a (density, flow) pair.
// ID is a stable identity assigned by the engine's state arena at
// creation time; it distinguishes states used as map keys from
// coincidentally value-equal pairs. Geometry always compares by value,
// never by ID.
type State struct {
	Density float64 `json:"density"` // vehicles per meter
	Flow    float64 `json:"flow"`    // vehicles per second
	ID      int     `json:"-"`
}

// StateKey is the rounded map-key representation of a State's value.
type StateKey struct {
	K, Q int64
}

// Key returns the rounded value representation of s for use as a map key.
func (s State) Key() StateKey {
	return StateKey{K: roundKey(s.Density), Q: roundKey(s.Flow)}
}

// Equal reports value equality within tolerance. Identity is ignored.
func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	return EqualWithin(s.Density, o.Density) && EqualWithin(s.Flow, o.Flow)
}

// Speed is the space-mean vehicle speed of the state. An empty state
// has no vehicles; its speed is reported as +Inf and callers substitute
// the free-flow speed.
func (s State) Speed() float64 {
	if EqualWithin(s.Density, 0) {
		return math.Inf(1)
	}
	return s.Flow / s.Density
}

// InterfaceSlopeTo returns the slope of the boundary between s and o in
// the time-position plane (the Rankine-Hugoniot shock speed). The
// second return is false when the densities coincide and the slope is
// undefined.
func (s State) InterfaceSlopeTo(o State) (float64, bool) {
	if EqualWithin(s.Density, o.Density) {
		return 0, false
	}
	return (s.Flow - o.Flow) / (s.Density - o.Density), true
}

func (s State) String() string {
	return fmt.Sprintf("State(k=%g, q=%g)", s.Density, s.Flow)
}
