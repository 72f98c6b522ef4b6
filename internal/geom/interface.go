package geom

import (
	"fmt"
	"math"
)

// CapacitySource is the capability an interface keeps about the
// augmenter that issued it: the nominal reduced capacity that applies
// while the perturbation is active.
type CapacitySource interface {
	Bottleneck() float64
}

// UserMeta is carried by user-caused interfaces. It remembers the
// issuing augmenter and the original, pre-cutoff bounds so truncation
// handling and rendering can recover the full perturbation extent.
type UserMeta struct {
	Source    CapacitySource
	OrigLower Point
	OrigUpper Point
}

// Interface is a line boundary between two constant traffic states in
// the time-position plane, defined by a point on the line, a slope, and
// lower/upper endpoint bounds with respect to time. The upper bound may
// be open (time +Inf). Above is the state encountered at positions
// greater than the line at equal time; Below the state at lesser
// positions. Above and Below are either both unset (a user interface
// pending resolution) or both set.
//
// Interfaces are owned by the engine's arena. They are never deleted,
// only truncated, so events scheduled against them stay valid.
type Interface struct {
	P     Point
	Slope float64

	above *State
	below *State

	lower Point
	upper Point

	loCut bool
	hiCut bool

	// User is non-nil for user-caused interfaces.
	User *UserMeta
}

// NewInterface creates an interface through p with the given slope and
// states. The lower bound is placed slightly behind the viewport origin
// and the upper bound is open.
func NewInterface(p Point, slope float64, above, below *State) *Interface {
	lower := Point{
		Time: -LowerBoundPad,
		Pos:  p.Pos - slope*p.Time - LowerBoundPad*slope,
	}
	return NewBoundedInterface(p, slope, above, below, lower, OpenUpper())
}

// NewBoundedInterface creates an interface with explicit endpoint
// bounds. Use OpenUpper for an unbounded upper endpoint.
func NewBoundedInterface(p Point, slope float64, above, below *State, lower, upper Point) *Interface {
	return &Interface{P: p, Slope: slope, above: above, below: below, lower: lower, upper: upper}
}

// NewUserInterface creates a pending user-caused interface: both states
// unset, original bounds remembered, back-reference to the source kept.
func NewUserInterface(p Point, slope float64, lower, upper Point, src CapacitySource) *Interface {
	f := NewBoundedInterface(p, slope, nil, nil, lower, upper)
	f.User = &UserMeta{Source: src, OrigLower: lower, OrigUpper: upper}
	return f
}

// OpenUpper returns the open (unbounded) upper endpoint.
func OpenUpper() Point {
	return Point{Time: math.Inf(1), Pos: math.Inf(1)}
}

// IsUser reports whether the interface was caused by an augmenter.
func (f *Interface) IsUser() bool { return f.User != nil }

// Above returns the state above the line, or nil while unresolved.
func (f *Interface) Above() *State { return f.above }

// Below returns the state below the line, or nil while unresolved.
func (f *Interface) Below() *State { return f.below }

// HasStates reports whether both sides are resolved.
func (f *Interface) HasStates() bool { return f.above != nil && f.below != nil }

// SetAbove records the state above the line. The first assignment wins;
// later assignments to an already-resolved side are ignored.
func (f *Interface) SetAbove(s *State) {
	if f.above == nil {
		f.above = s
	}
}

// SetBelow records the state below the line. The first assignment wins.
func (f *Interface) SetBelow(s *State) {
	if f.below == nil {
		f.below = s
	}
}

// ClearStates returns the interface to the pending (unresolved) state.
func (f *Interface) ClearStates() {
	f.above = nil
	f.below = nil
}

// Lower returns the lower (earlier) endpoint bound.
func (f *Interface) Lower() Point { return f.lower }

// Upper returns the upper (later) endpoint bound. Time is +Inf when the
// bound is open.
func (f *Interface) Upper() Point { return f.upper }

// HasEndpoint reports whether p coincides with either endpoint bound.
func (f *Interface) HasEndpoint(p Point) bool {
	return f.lower.Equal(p) || (!math.IsInf(f.upper.Time, 1) && f.upper.Equal(p))
}

// PosAt returns the position of the boundary line at the given time.
// The second return is false when the time falls outside the endpoint
// bounds.
func (f *Interface) PosAt(t float64) (float64, bool) {
	if t < f.lower.Time || t > f.upper.Time {
		return 0, false
	}
	return f.lineAt(t), true
}

// lineAt evaluates the unbounded line at time t.
func (f *Interface) lineAt(t float64) float64 {
	return f.P.Pos + f.Slope*(t-f.P.Time)
}

// Intersection returns the point where the two bounded interfaces meet.
// The second return is false for parallel slopes (within tolerance) or
// when the crossing falls outside either interface's bounds.
func (f *Interface) Intersection(o *Interface) (Point, bool) {
	if EqualWithin(f.Slope, o.Slope) {
		return Point{}, false
	}

	// Point-slope form solved for the meeting time.
	t := (o.P.Pos - o.Slope*o.P.Time - f.P.Pos + f.Slope*f.P.Time) / (f.Slope - o.Slope)

	p1, ok1 := f.PosAt(t)
	p2, ok2 := o.PosAt(t)
	if !ok1 || !ok2 {
		return Point{}, false
	}
	if !EqualWithin(p1, p2) {
		return Point{}, false
	}
	return Point{Time: t, Pos: p1}, true
}

// Cutoff tightens the interface's bounds. At most one of lower/upper may
// be supplied per call, and each side may be cut at most once over the
// interface's lifetime. A supplied point that already coincides with an
// endpoint is ignored. Points must lie on the interface line and keep
// the bounds ordered; violations are reported as errors.
func (f *Interface) Cutoff(lower, upper *Point) error {
	if lower != nil && upper != nil {
		return fmt.Errorf("cutoff: cannot tighten both sides in one call")
	}
	if lower != nil && f.HasEndpoint(*lower) {
		lower = nil
	}
	if upper != nil && f.HasEndpoint(*upper) {
		upper = nil
	}
	if lower == nil && upper == nil {
		return nil
	}

	if lower != nil {
		if err := f.checkOnLine(*lower); err != nil {
			return fmt.Errorf("cutoff lower bound: %w", err)
		}
		if f.loCut {
			return fmt.Errorf("cutoff: lower bound already tightened at %v", f.lower)
		}
		if lower.Time > f.upper.Time {
			return fmt.Errorf("cutoff: lower bound %v beyond upper bound %v", lower, f.upper)
		}
		if lower.Time > f.lower.Time {
			f.lower = *lower
			f.loCut = true
		}
		f.P = f.lower
		return nil
	}

	if err := f.checkOnLine(*upper); err != nil {
		return fmt.Errorf("cutoff upper bound: %w", err)
	}
	if f.hiCut {
		return fmt.Errorf("cutoff: upper bound already tightened at %v", f.upper)
	}
	if upper.Time < f.lower.Time {
		return fmt.Errorf("cutoff: upper bound %v before lower bound %v", upper, f.lower)
	}
	if upper.Time < f.upper.Time {
		f.upper = *upper
		f.hiCut = true
	}
	f.P = *upper
	return nil
}

// checkOnLine verifies that p falls on the interface line.
func (f *Interface) checkOnLine(p Point) error {
	if EqualWithin(p.Time, f.P.Time) {
		if !EqualWithin(p.Pos, f.lineAt(p.Time)) {
			return fmt.Errorf("point %v not on interface line", p)
		}
		return nil
	}
	s, _ := f.P.SlopeTo(p)
	if !EqualWithin(s, f.Slope) {
		return fmt.Errorf("point %v not collinear with interface (slope %g vs %g)", p, s, f.Slope)
	}
	return nil
}

// Reopen starts a fresh lifecycle for a user interface from the given
// point on its line: the lower bound moves to the point, the upper
// bound returns to the original perturbation extent, both states return
// to pending, and the cutoff budget resets. Used by truncation handling
// after the pre-existing record has been duplicated.
func (f *Interface) Reopen(lower Point) error {
	if err := f.checkOnLine(lower); err != nil {
		return fmt.Errorf("reopen: %w", err)
	}
	upper := f.upper
	if f.User != nil {
		upper = f.User.OrigUpper
	}
	if lower.Time > upper.Time {
		return fmt.Errorf("reopen: point %v beyond upper bound %v", lower, upper)
	}
	f.lower = lower
	f.upper = upper
	f.P = lower
	f.above = nil
	f.below = nil
	f.loCut = false
	f.hiCut = false
	return nil
}

// Duplicate returns a frozen copy of the interface: same line, bounds
// and states. Used by truncation handling to preserve the resolved
// record of a user interface before the live one is re-opened.
func (f *Interface) Duplicate() *Interface {
	d := *f
	if f.User != nil {
		meta := *f.User
		d.User = &meta
	}
	return &d
}

func (f *Interface) String() string {
	return fmt.Sprintf("Interface(%v, slope=%g)", f.P, f.Slope)
}

// Trajectory is a degenerate interface used only to trace a
// representative vehicle path through the finished diagram. It takes no
// part in state resolution.
type Trajectory struct {
	Interface
}

// NewTrajectory creates a trajectory ray from p with the given speed.
func NewTrajectory(p Point, speed float64) *Trajectory {
	return &Trajectory{Interface: *NewBoundedInterface(p, speed, nil, nil, p, OpenUpper())}
}
