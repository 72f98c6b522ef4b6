package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/banshee-data/shockwave.report/internal/flow"
	"github.com/banshee-data/shockwave.report/internal/geom"
)

// Augmenter is a capacity perturbation source. Init is invoked exactly
// once during engine setup and may register user interfaces and enqueue
// capacity events; it must not retain the engine reference afterwards.
// Augmenters must not create intersections among purely user-caused
// interfaces (the engine checks after setup and fails fast).
type Augmenter interface {
	Init(e *Engine) error
	// Bottleneck is the nominal reduced capacity (veh/s) applied when a
	// pending perturbation is activated by truncation handling.
	Bottleneck() float64
}

// Engine builds a shockwave diagram by draining a queue of capacity,
// intersection and truncation events. It owns the interface arena, the
// per-point event dedup indices and the state intern table.
type Engine struct {
	diagram  *flow.FundamentalDiagram
	horizon  float64
	augments []Augmenter

	defaultState *geom.State

	events eventQueue
	seq    int

	ifaces     []*geom.Interface
	userIfaces []Handle

	// Pending events indexed by rounded intersection point, so every
	// interface meeting at (tolerantly) the same point merges into one
	// event instead of order-dependent pairwise events.
	pendingInter map[geom.PointKey]*Event
	pendingTrunc map[geom.PointKey]*Event

	// State intern table: value-equal states share one arena entry with
	// a stable identity.
	states      map[geom.StateKey]*geom.State
	stateOrder  []*geom.State
	nextStateID int

	ran bool
}

// New creates an engine for one run over the given horizon (seconds).
func New(diagram *flow.FundamentalDiagram, horizon float64, augments []Augmenter) (*Engine, error) {
	if diagram == nil {
		return nil, fmt.Errorf("engine: nil fundamental diagram")
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("engine: horizon must be positive, got %g", horizon)
	}
	return &Engine{diagram: diagram, horizon: horizon, augments: augments}, nil
}

// Diagram returns the fundamental diagram the engine runs against.
func (e *Engine) Diagram() *flow.FundamentalDiagram { return e.diagram }

// Horizon returns the simulation horizon in seconds.
func (e *Engine) Horizon() float64 { return e.horizon }

// DefaultState returns the scenario's initial state.
func (e *Engine) DefaultState() *geom.State { return e.defaultState }

// reset clears all mutable run state.
func (e *Engine) reset() {
	e.events = nil
	e.seq = 0
	e.ifaces = nil
	e.userIfaces = nil
	e.pendingInter = make(map[geom.PointKey]*Event)
	e.pendingTrunc = make(map[geom.PointKey]*Event)
	e.states = make(map[geom.StateKey]*geom.State)
	e.stateOrder = nil
	e.nextStateID = 0
	e.ran = false

	e.defaultState = e.intern(e.diagram.InitialState())
}

// intern returns the arena entry for a state value, creating it with a
// fresh identity on first sight. Geometry compares states by value;
// the identity only disambiguates value-equal states used as map keys.
func (e *Engine) intern(s geom.State) *geom.State {
	key := s.Key()
	if got, ok := e.states[key]; ok {
		return got
	}
	e.nextStateID++
	s.ID = e.nextStateID
	entry := &s
	e.states[key] = entry
	e.stateOrder = append(e.stateOrder, entry)
	return entry
}

// Intern exposes the state arena to augmenters and post-run callers
// that need an engine-owned state for a diagram value.
func (e *Engine) Intern(s geom.State) *geom.State { return e.intern(s) }

func (e *Engine) iface(h Handle) *geom.Interface { return e.ifaces[h] }

func (e *Engine) handleOf(f *geom.Interface) Handle {
	for i, g := range e.ifaces {
		if g == f {
			return Handle(i)
		}
	}
	panic("sim: interface not in arena")
}

// append adds an interface to the arena without scanning for
// intersections.
func (e *Engine) append(f *geom.Interface) Handle {
	e.ifaces = append(e.ifaces, f)
	h := Handle(len(e.ifaces) - 1)
	if f.IsUser() {
		e.userIfaces = append(e.userIfaces, h)
	}
	return h
}

func (e *Engine) push(ev *Event) {
	ev.seq = e.seq
	e.seq++
	heap.Push(&e.events, ev)
}

// AddUserInterface registers a pending user-caused interface during
// augmenter initialization and returns its handle.
func (e *Engine) AddUserInterface(p geom.Point, slope float64, lower, upper geom.Point, src geom.CapacitySource) Handle {
	return e.append(geom.NewUserInterface(p, slope, lower, upper, src))
}

// ScheduleCapacity enqueues a capacity event at the given point on the
// given originating interface. Prior and posterior capacities must be
// non-negative or Unset.
func (e *Engine) ScheduleCapacity(p geom.Point, h Handle, prior, posterior float64) error {
	if prior != Unset && prior < 0 {
		return fmt.Errorf("capacity event: prior capacity %g must be non-negative or unset", prior)
	}
	if posterior != Unset && posterior < 0 {
		return fmt.Errorf("capacity event: posterior capacity %g must be non-negative or unset", posterior)
	}
	e.push(&Event{Point: p, Capacity: &CapacityEvent{Iface: h, Prior: prior, Posterior: posterior}})
	return nil
}

// addInterface registers a finalized interface: it is appended to the
// arena and scanned against every previously registered interface for
// future intersections. Meetings with user-caused interfaces route to
// the truncation index, everything else to the intersection index; both
// merge by (tolerantly) equal meeting point.
func (e *Engine) addInterface(f *geom.Interface) Handle {
	h := e.append(f)

	for gi, g := range e.ifaces {
		gh := Handle(gi)
		if gh == h {
			continue
		}
		p, ok := f.Intersection(g)
		if !ok {
			continue
		}
		// A crossing at one of the new interface's own endpoints was
		// produced by the event that created it; already handled.
		if f.HasEndpoint(p) {
			continue
		}

		if g.IsUser() {
			e.routeTruncation(p, gh, h)
		} else {
			e.routeIntersection(p, gh, h)
		}
	}
	return h
}

func (e *Engine) routeTruncation(p geom.Point, user, organic Handle) {
	key := p.Key()
	if ev, ok := e.pendingTrunc[key]; ok {
		ev.Truncation.Ifaces = appendHandle(ev.Truncation.Ifaces, organic)
		return
	}

	ev := &Event{Point: p, Truncation: &TruncationEvent{UserIface: user, Ifaces: []Handle{organic}}}

	// A user truncation supersedes any organic intersection already
	// pending at the same point: soft-delete it and fold its
	// participants in.
	if old, ok := e.pendingInter[key]; ok {
		old.Disabled = true
		delete(e.pendingInter, key)
		for _, oh := range old.Intersection.Ifaces {
			ev.Truncation.Ifaces = appendHandle(ev.Truncation.Ifaces, oh)
		}
	}

	e.pendingTrunc[key] = ev
	e.push(ev)
}

func (e *Engine) routeIntersection(p geom.Point, other, added Handle) {
	key := p.Key()
	if ev, ok := e.pendingTrunc[key]; ok {
		ev.Truncation.Ifaces = appendHandle(ev.Truncation.Ifaces, other)
		ev.Truncation.Ifaces = appendHandle(ev.Truncation.Ifaces, added)
		return
	}
	if ev, ok := e.pendingInter[key]; ok {
		ev.Intersection.Ifaces = appendHandle(ev.Intersection.Ifaces, other)
		ev.Intersection.Ifaces = appendHandle(ev.Intersection.Ifaces, added)
		return
	}
	ev := &Event{Point: p, Intersection: &IntersectionEvent{Ifaces: []Handle{other, added}}}
	e.pendingInter[key] = ev
	e.push(ev)
}

func appendHandle(hs []Handle, h Handle) []Handle {
	for _, x := range hs {
		if x == h {
			return hs
		}
	}
	return append(hs, h)
}

// ResolveState returns the traffic state on the given side of a query
// point: the nearest resolved interface on that side contributes its
// facing state, and the default state applies where no interface
// qualifies. The query time is offset by a small epsilon so interfaces
// ending exactly at the query time do not count.
func (e *Engine) ResolveState(p geom.Point, side geom.Side) *geom.State {
	t := p.Time + geom.ResolveEps
	scale := 1.0
	if side == geom.Above {
		scale = -1.0
	}

	var best *geom.Interface
	bestDist := math.Inf(1)

	for _, f := range e.ifaces {
		if !f.HasStates() {
			continue
		}
		pos, ok := f.PosAt(t)
		if !ok {
			continue
		}
		d := scale * (p.Pos - pos)
		if d < -geom.Tol {
			continue
		}
		switch {
		case d < bestDist && !geom.EqualWithin(d, bestDist):
			best, bestDist = f, d
		case geom.EqualWithin(d, bestDist) && best != nil:
			// Among equidistant candidates the more extreme slope toward
			// the query side is the more recent discontinuity there.
			if side == geom.Below && f.Slope > best.Slope {
				best = f
			}
			if side == geom.Above && f.Slope < best.Slope {
				best = f
			}
		}
	}

	if best == nil {
		return e.defaultState
	}
	if side == geom.Below {
		return best.Above()
	}
	return best.Below()
}

// setup resets run state, initializes every augmenter in order, and
// verifies that no two user-caused interfaces intersect each other.
func (e *Engine) setup() error {
	e.reset()

	for i, a := range e.augments {
		if err := a.Init(e); err != nil {
			return fmt.Errorf("augmenter %d init: %w", i, err)
		}
	}

	// User interfaces crossing each other is an impossible physical
	// configuration: fail fast rather than resolve it arbitrarily.
	for i := 0; i < len(e.userIfaces); i++ {
		for j := i + 1; j < len(e.userIfaces); j++ {
			a, b := e.iface(e.userIfaces[i]), e.iface(e.userIfaces[j])
			if p, ok := a.Intersection(b); ok {
				return fmt.Errorf("modeling error: user interfaces %v and %v intersect at %v", a, b, p)
			}
		}
	}
	return nil
}

// Run executes the simulation to completion. Events are drained in
// (time, priority, position) order; each handler may register new
// interfaces, which in turn schedule further events. Fatal errors are
// modeling invariant violations; degenerate geometry is absorbed
// locally by the handlers.
func (e *Engine) Run() error {
	if err := e.setup(); err != nil {
		return err
	}

	for e.events.Len() > 0 {
		ev := heap.Pop(&e.events).(*Event)

		// The event is live now; drop it from the merge indices so later
		// registrations at the same point start a fresh event.
		key := ev.Point.Key()
		if e.pendingInter[key] == ev {
			delete(e.pendingInter, key)
		}
		if e.pendingTrunc[key] == ev {
			delete(e.pendingTrunc, key)
		}

		if ev.Disabled {
			continue
		}

		var err error
		switch {
		case ev.Truncation != nil:
			err = e.handleTruncation(ev.Point, ev.Truncation)
		case ev.Intersection != nil:
			err = e.handleIntersection(ev.Point, ev.Intersection.Ifaces)
		case ev.Capacity != nil:
			err = e.handleCapacity(ev.Point, ev.Capacity)
		default:
			err = fmt.Errorf("event at %v has no payload", ev.Point)
		}
		if err != nil {
			return err
		}
	}

	e.ran = true
	return nil
}

// Ran reports whether the engine has completed a run.
func (e *Engine) Ran() bool { return e.ran }

// Interfaces returns the finalized interface list. The slice is a copy;
// the entries are engine-owned and must be treated as read-only.
func (e *Engine) Interfaces() []*geom.Interface {
	out := make([]*geom.Interface, len(e.ifaces))
	copy(out, e.ifaces)
	return out
}

// UserInterfaces returns the user-caused subset of the interface list.
func (e *Engine) UserInterfaces() []*geom.Interface {
	out := make([]*geom.Interface, 0, len(e.userIfaces))
	for _, h := range e.userIfaces {
		out = append(out, e.iface(h))
	}
	return out
}

// States returns every resolved state produced during the run, in
// creation order.
func (e *Engine) States() []*geom.State {
	out := make([]*geom.State, len(e.stateOrder))
	copy(out, e.stateOrder)
	return out
}

// PendingEvents returns the number of events still queued. Zero after a
// completed run.
func (e *Engine) PendingEvents() int { return e.events.Len() }
