package sim

import (
	"github.com/banshee-data/shockwave.report/internal/geom"
)

// Handle identifies an interface in the engine's arena. Events store
// handles rather than pointers so that an interface invalidated by a
// cutoff is a property lookup, not a dangling reference.
type Handle int

// Event priorities. Lower values are processed first within a
// tolerantly-equal time batch: truncations re-shape user interfaces,
// intersections consume organic interfaces, and raw capacity events
// then resolve against the freshly created geometry.
const (
	priorityTruncation   = 0
	priorityIntersection = 1
	priorityCapacity     = 2
)

// CapacityEvent is an externally-caused change in maximum allowed flow
// at a point on its originating interface. Prior and Posterior are
// capacities in veh/s; Unset means "use the default" (the below state's
// flow for Prior, the diagram maximum for Posterior).
type CapacityEvent struct {
	Iface     Handle
	Prior     float64
	Posterior float64
}

// Unset marks a capacity event field left to its default.
const Unset = -1

// IntersectionEvent is the meeting of two or more organically generated
// interfaces at one point. Events at tolerantly-equal points are merged
// so a 3+-way meeting resolves once, deterministically.
type IntersectionEvent struct {
	Ifaces []Handle
}

// TruncationEvent is the meeting of organically generated interfaces
// with a user-caused interface.
type TruncationEvent struct {
	UserIface Handle
	Ifaces    []Handle
}

// Event is the closed tagged union of the three event kinds: exactly
// one of Capacity, Intersection, Truncation is non-nil. Disabled events
// stay in the queue but are skipped without side effects.
type Event struct {
	Point    geom.Point
	Disabled bool

	Capacity     *CapacityEvent
	Intersection *IntersectionEvent
	Truncation   *TruncationEvent

	// seq preserves insertion order as the final, deterministic
	// tie-break for the queue.
	seq int
}

func (e *Event) priority() int {
	switch {
	case e.Truncation != nil:
		return priorityTruncation
	case e.Intersection != nil:
		return priorityIntersection
	default:
		return priorityCapacity
	}
}
