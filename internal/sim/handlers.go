package sim

import (
	"fmt"
	"math"

	"github.com/banshee-data/shockwave.report/internal/flow"
	"github.com/banshee-data/shockwave.report/internal/geom"
)

// handleCapacity resolves a change in maximum allowed flow at a point
// on its originating interface. A capacity drop creates a main
// interface (the congested state entering the restriction) and a
// byproduct interface (the free-flow state released from it); a
// capacity increase with nothing queued creates no discontinuity.
func (e *Engine) handleCapacity(at geom.Point, ec *CapacityEvent) error {
	origin := e.iface(ec.Iface)

	// The originating interface may have been cut off by an earlier
	// event this tick; the capacity change then has nothing to act on.
	if _, ok := origin.PosAt(at.Time); !ok {
		return nil
	}

	above := e.ResolveState(at, geom.Above)
	below := e.ResolveState(at, geom.Below)

	prior := ec.Prior
	if prior == Unset {
		prior = below.Flow
	}
	posterior := ec.Posterior
	if posterior == Unset {
		posterior = e.diagram.Capacity()
	}

	// Capacities above the diagram maximum cannot be realized.
	prior = math.Min(prior, e.diagram.Capacity())
	posterior = math.Min(posterior, e.diagram.Capacity())

	// A free-flowing stream cannot be made to emit more than it is
	// carrying: clamp both capacities to the incoming flow.
	if !e.diagram.IsQueued(*below) {
		prior = math.Min(prior, below.Flow)
		posterior = math.Min(posterior, below.Flow)
	}

	noDrop := posterior > prior || geom.EqualWithin(posterior, prior)
	if noDrop && (!e.diagram.IsQueued(*below) || above.Equal(below)) {
		if above.Equal(below) {
			return nil
		}
		// The states pass through unchanged, but a boundary between the
		// already-distinct sides must still be recorded for diagram
		// continuity.
		slope, err := e.diagram.InterfaceSlope(above.Density, below.Density)
		if err != nil {
			return fmt.Errorf("capacity event at %v: pass-through: %w", at, err)
		}
		pass := geom.NewBoundedInterface(at, slope, above, below, at, geom.OpenUpper())
		return e.registerDerived(origin, at, pass)
	}

	// Conservation boundary of vehicles entering the restriction.
	mainState := e.mustStateByFlow(posterior, flow.Congested)
	if !mainState.Equal(below) {
		slope, err := e.diagram.InterfaceSlope(mainState.Density, below.Density)
		if err != nil {
			return fmt.Errorf("capacity event at %v: main interface: %w", at, err)
		}
		main := geom.NewBoundedInterface(at, slope, mainState, below, at, geom.OpenUpper())
		if err := e.registerDerived(origin, at, main); err != nil {
			return err
		}
	}

	// Conservation boundary of vehicles released from the restriction.
	byState := e.mustStateByFlow(posterior, flow.FreeFlow)
	if !byState.Equal(above) {
		slope, err := e.diagram.InterfaceSlope(above.Density, byState.Density)
		if err != nil {
			return fmt.Errorf("capacity event at %v: byproduct interface: %w", at, err)
		}
		byproduct := geom.NewBoundedInterface(at, slope, above, byState, at, geom.OpenUpper())
		if err := e.registerDerived(origin, at, byproduct); err != nil {
			return err
		}
	}

	return nil
}

// mustStateByFlow interns the inverse diagram lookup. The flow has been
// clamped to [0, capacity] by the caller, so the lookup cannot fail.
func (e *Engine) mustStateByFlow(q float64, branch flow.Branch) *geom.State {
	s, err := e.diagram.StateByFlow(q, branch)
	if err != nil {
		panic(fmt.Sprintf("sim: clamped flow out of range: %v", err))
	}
	return e.intern(s)
}

// registerDerived registers an interface created by a capacity event
// and reconciles the originating interface's own state labels against
// it. A derived interface reproducing its parent's slope would encode
// zero state change and indicates a modeling bug.
func (e *Engine) registerDerived(origin *geom.Interface, at geom.Point, derived *geom.Interface) error {
	if geom.EqualWithin(derived.Slope, origin.Slope) {
		return fmt.Errorf("modeling error: derived interface at %v reproduces originating slope %g", at, origin.Slope)
	}

	// The freshly created interface bounds a region adjacent to the
	// originating interface; which side depends on the slope ordering
	// and on which end of the originating interface the event sits.
	// First assignment wins: an already-labelled side is kept.
	if at.Equal(origin.Lower()) {
		if derived.Slope < origin.Slope {
			origin.SetBelow(derived.Above())
		} else {
			origin.SetAbove(derived.Below())
		}
	} else if at.Equal(origin.Upper()) {
		if derived.Slope < origin.Slope {
			origin.SetAbove(derived.Below())
		} else {
			origin.SetBelow(derived.Above())
		}
	}

	e.addInterface(derived)
	return nil
}

// liveAt filters handles down to interfaces still geometrically defined
// at the point: earlier events this tick may have cut them off.
func (e *Engine) liveAt(at geom.Point, hs []Handle) []*geom.Interface {
	var live []*geom.Interface
	for _, h := range hs {
		f := e.iface(h)
		pos, ok := f.PosAt(at.Time)
		if ok && geom.EqualWithin(pos, at.Pos) {
			live = append(live, f)
		}
	}
	return live
}

// handleIntersection resolves a meeting of two or more interfaces: the
// outer envelope states persist (the above of the shallowest slope, the
// below of the steepest), every participant is cut off at the point,
// and a single interface carries the surviving discontinuity forward.
func (e *Engine) handleIntersection(at geom.Point, hs []Handle) error {
	live := e.liveAt(at, hs)
	if len(live) < 2 {
		return nil
	}

	var above, below *geom.State
	var minSlope, maxSlope float64
	for _, f := range live {
		if !f.HasStates() {
			// A re-opened user interface participates in the cutoffs but
			// contributes no envelope state.
			continue
		}
		if above == nil || f.Slope < minSlope {
			above, minSlope = f.Above(), f.Slope
		}
		if below == nil || f.Slope > maxSlope {
			below, maxSlope = f.Below(), f.Slope
		}
	}

	for _, f := range live {
		if err := f.Cutoff(nil, &at); err != nil {
			// A non-collinear cutoff means the merge point drifted off
			// one participant's line; the meeting produces nothing.
			return nil
		}
	}

	if above == nil || below == nil || above.Equal(below) {
		return nil
	}

	slope, err := e.diagram.InterfaceSlope(above.Density, below.Density)
	if err != nil {
		return fmt.Errorf("intersection at %v: %w", at, err)
	}
	next := geom.NewBoundedInterface(at, slope, above, below, at, geom.OpenUpper())
	e.addInterface(next)
	return nil
}

// handleTruncation resolves the meeting of organic interfaces with a
// user-caused one. A still-pending user interface means the meeting
// activates the perturbation: it becomes a capacity event with the
// augmenter's nominal bottleneck as posterior capacity. An
// already-resolved user interface is preserved as a frozen record,
// re-opened from the meeting point, and re-resolved as a fresh
// intersection against its new surroundings.
func (e *Engine) handleTruncation(at geom.Point, te *TruncationEvent) error {
	user := e.iface(te.UserIface)
	if _, ok := user.PosAt(at.Time); !ok {
		return nil
	}

	live := e.liveAt(at, te.Ifaces)
	if len(live) == 0 {
		return nil
	}

	for _, f := range live {
		if err := f.Cutoff(nil, &at); err != nil {
			return nil
		}
	}

	if !user.HasStates() {
		// A pending perturbation on an otherwise-undisturbed stream:
		// the part of the user interface before the meeting never
		// bound anything.
		if err := user.Cutoff(&at, nil); err != nil {
			return fmt.Errorf("truncation at %v: %w", at, err)
		}
		posterior := float64(Unset)
		if user.User != nil && user.User.Source != nil {
			posterior = user.User.Source.Bottleneck()
		}
		return e.handleCapacity(at, &CapacityEvent{Iface: te.UserIface, Prior: Unset, Posterior: posterior})
	}

	// Keep the resolved record for diagram continuity, then re-open the
	// live interface from the meeting point with pending states.
	record := user.Duplicate()
	if err := record.Cutoff(nil, &at); err != nil {
		return fmt.Errorf("truncation at %v: record cutoff: %w", at, err)
	}
	e.append(record)

	if err := user.Reopen(at); err != nil {
		return fmt.Errorf("truncation at %v: %w", at, err)
	}

	hs := make([]Handle, 0, len(live)+1)
	for _, f := range live {
		hs = append(hs, e.handleOf(f))
	}
	hs = append(hs, te.UserIface)
	return e.handleIntersection(at, hs)
}
