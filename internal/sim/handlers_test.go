package sim

import (
	"strings"
	"testing"

	"github.com/banshee-data/shockwave.report/internal/flow"
	"github.com/banshee-data/shockwave.report/internal/geom"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	d, err := flow.New(2, 1, 5, 1)
	if err != nil {
		t.Fatalf("flow.New: %v", err)
	}
	e, err := New(d, 30, nil)
	if err != nil {
		t.Fatalf("sim.New: %v", err)
	}
	e.reset()
	return e
}

func TestRegisterDerivedRejectsReproducedSlope(t *testing.T) {
	e := newTestEngine(t)
	origin := geom.NewUserInterface(geom.Point{Time: 0, Pos: 10}, 0, geom.Point{Time: 0, Pos: 10}, geom.Point{Time: 30, Pos: 10}, nil)
	e.append(origin)

	derived := geom.NewInterface(geom.Point{Time: 5, Pos: 10}, 0, e.defaultState, e.defaultState)
	err := e.registerDerived(origin, geom.Point{Time: 5, Pos: 10}, derived)
	if err == nil {
		t.Fatal("expected modeling error for derived slope equal to origin slope")
	}
	if !strings.Contains(err.Error(), "modeling error") {
		t.Errorf("error %q should identify a modeling error", err)
	}
}

func TestHandleCapacityPassThroughKeepsExistingBoundary(t *testing.T) {
	e := newTestEngine(t)

	// The region above position 12 carries a lighter free-flow state, so
	// above and below resolve differently at the event point even though
	// the capacity never drops.
	lighter := e.intern(geom.State{Density: 0.5, Flow: 1})
	upperBoundary := geom.NewInterface(geom.Point{Time: 0, Pos: 12}, 0, lighter, lighter)
	e.append(upperBoundary)

	origin := geom.NewUserInterface(geom.Point{Time: 0, Pos: 10}, 0, geom.Point{Time: 0, Pos: 10}, geom.Point{Time: 30, Pos: 10}, nil)
	h := e.append(origin)

	before := len(e.ifaces)
	at := geom.Point{Time: 10, Pos: 10}
	if err := e.handleCapacity(at, &CapacityEvent{Iface: h, Prior: Unset, Posterior: Unset}); err != nil {
		t.Fatalf("handleCapacity: %v", err)
	}

	if len(e.ifaces) != before+1 {
		t.Fatalf("expected exactly one pass-through interface, got %d new", len(e.ifaces)-before)
	}
	pass := e.ifaces[len(e.ifaces)-1]
	if want := 2.0; !geom.EqualWithin(pass.Slope, want) {
		t.Errorf("pass-through slope = %g, want %g", pass.Slope, want)
	}
	if !pass.Above().Equal(lighter) || !pass.Below().Equal(e.defaultState) {
		t.Errorf("pass-through states = %v/%v, want lighter/default", pass.Above(), pass.Below())
	}
}

func TestHandleCapacityUniformStreamNoDrop(t *testing.T) {
	e := newTestEngine(t)
	origin := geom.NewUserInterface(geom.Point{Time: 0, Pos: 10}, 0, geom.Point{Time: 0, Pos: 10}, geom.Point{Time: 30, Pos: 10}, nil)
	h := e.append(origin)

	before := len(e.ifaces)
	// Posterior above the incoming flow on an unqueued stream: nothing
	// can change.
	if err := e.handleCapacity(geom.Point{Time: 10, Pos: 10}, &CapacityEvent{Iface: h, Prior: Unset, Posterior: 3}); err != nil {
		t.Fatalf("handleCapacity: %v", err)
	}
	if len(e.ifaces) != before {
		t.Errorf("expected no new interfaces, got %d", len(e.ifaces)-before)
	}
}

func TestHandleCapacityDropCreatesMainAndByproduct(t *testing.T) {
	e := newTestEngine(t)
	origin := geom.NewUserInterface(geom.Point{Time: 5, Pos: 10}, 0, geom.Point{Time: 5, Pos: 10}, geom.Point{Time: 30, Pos: 10}, nil)
	h := e.append(origin)

	before := len(e.ifaces)
	at := geom.Point{Time: 5, Pos: 10}
	if err := e.handleCapacity(at, &CapacityEvent{Iface: h, Prior: Unset, Posterior: 1}); err != nil {
		t.Fatalf("handleCapacity: %v", err)
	}
	if len(e.ifaces) != before+2 {
		t.Fatalf("expected a main and a byproduct interface, got %d new", len(e.ifaces)-before)
	}

	main := e.ifaces[before]
	byproduct := e.ifaces[before+1]
	if want := -1.0 / 3.0; !geom.EqualWithin(main.Slope, want) {
		t.Errorf("main slope = %g, want %g", main.Slope, want)
	}
	if want := 2.0; !geom.EqualWithin(byproduct.Slope, want) {
		t.Errorf("byproduct slope = %g, want %g", byproduct.Slope, want)
	}

	// The congested side of the restriction holds flow 1 on the
	// congested branch; the released side the same flow in free flow.
	if got := main.Above(); !geom.EqualWithin(got.Density, 4) {
		t.Errorf("main above density = %g, want 4", got.Density)
	}
	if got := byproduct.Below(); !geom.EqualWithin(got.Density, 0.5) {
		t.Errorf("byproduct below density = %g, want 0.5", got.Density)
	}

	// The event sits at the origin's lower endpoint, so the origin's own
	// sides are reconciled against the derived interfaces.
	if !origin.HasStates() {
		t.Fatal("origin should have been resolved")
	}
	if got := origin.Below(); !geom.EqualWithin(got.Density, 4) {
		t.Errorf("origin below density = %g, want 4", got.Density)
	}
	if got := origin.Above(); !geom.EqualWithin(got.Density, 0.5) {
		t.Errorf("origin above density = %g, want 0.5", got.Density)
	}
}

func TestHandleCapacityClampsBottleneckAboveDiagramCapacity(t *testing.T) {
	e := newTestEngine(t)

	// A jammed region below the restriction: the below state at the
	// event point sits on the congested branch.
	jam := e.intern(geom.State{Density: 5, Flow: 0})
	queueBack := geom.NewInterface(geom.Point{Time: 0, Pos: 2}, 0, jam, jam)
	e.append(queueBack)

	origin := geom.NewUserInterface(geom.Point{Time: 0, Pos: 5}, 0, geom.Point{Time: 0, Pos: 5}, geom.Point{Time: 30, Pos: 5}, nil)
	h := e.append(origin)

	// Posterior far above the diagram capacity must clamp instead of
	// failing the congested-branch inverse lookup.
	if err := e.handleCapacity(geom.Point{Time: 10, Pos: 5}, &CapacityEvent{Iface: h, Prior: Unset, Posterior: 50}); err != nil {
		t.Fatalf("handleCapacity: %v", err)
	}
}

func TestResolveStateSides(t *testing.T) {
	e := newTestEngine(t)

	congested := e.intern(geom.State{Density: 4, Flow: 1})
	f := geom.NewInterface(geom.Point{Time: 0, Pos: 10}, 0, congested, e.defaultState)
	e.append(f)

	// Above the boundary the congested state holds; below it the default.
	above := e.ResolveState(geom.Point{Time: 5, Pos: 15}, geom.Below)
	if !above.Equal(congested) {
		t.Errorf("state above boundary = %v, want congested", above)
	}
	below := e.ResolveState(geom.Point{Time: 5, Pos: 5}, geom.Above)
	if !below.Equal(e.defaultState) {
		t.Errorf("state below boundary = %v, want default", below)
	}

	// Far from any interface the default state applies on both sides.
	d := e.ResolveState(geom.Point{Time: 5, Pos: -100}, geom.Below)
	if !d.Equal(e.defaultState) {
		t.Errorf("distant state = %v, want default", d)
	}

	// Resolution is a pure query: repeating it changes nothing.
	again := e.ResolveState(geom.Point{Time: 5, Pos: 15}, geom.Below)
	if again != above {
		t.Error("repeated resolution should return the identical state")
	}
}

func TestResolveStateSkipsEndedAndPendingInterfaces(t *testing.T) {
	e := newTestEngine(t)

	congested := e.intern(geom.State{Density: 4, Flow: 1})
	ended := geom.NewBoundedInterface(geom.Point{Time: 0, Pos: 10}, 0, congested, congested, geom.Point{Time: 0, Pos: 10}, geom.Point{Time: 5, Pos: 10})
	e.append(ended)

	pending := geom.NewUserInterface(geom.Point{Time: 0, Pos: 8}, 0, geom.Point{Time: 0, Pos: 8}, geom.Point{Time: 30, Pos: 8}, nil)
	e.append(pending)

	// The bounded interface ends exactly at the query time; with the
	// forward epsilon it no longer counts, and the pending user interface
	// never does.
	got := e.ResolveState(geom.Point{Time: 5, Pos: 15}, geom.Below)
	if !got.Equal(e.defaultState) {
		t.Errorf("state = %v, want default", got)
	}
}

func TestThreeWayMergeResolvesOnce(t *testing.T) {
	e := newTestEngine(t)

	a := e.intern(geom.State{Density: 0.5, Flow: 1})
	b := e.intern(geom.State{Density: 4, Flow: 1})

	// Three interfaces through (10, 10) from different directions.
	f1 := geom.NewInterface(geom.Point{Time: 10, Pos: 10}, 2, a, e.defaultState)
	f2 := geom.NewInterface(geom.Point{Time: 10, Pos: 10}, -1, b, a)
	f3 := geom.NewInterface(geom.Point{Time: 10, Pos: 10}, 0.5, e.defaultState, b)

	e.addInterface(f1)
	e.addInterface(f2)
	if got := len(e.pendingInter); got != 1 {
		t.Fatalf("pending intersections after two interfaces = %d, want 1", got)
	}
	e.addInterface(f3)
	if got := len(e.pendingInter); got != 1 {
		t.Fatalf("three-way meeting should merge into one event, have %d", got)
	}

	for _, ev := range e.pendingInter {
		if got := len(ev.Intersection.Ifaces); got != 3 {
			t.Errorf("merged event has %d participants, want 3", got)
		}
	}
}

func TestTruncationSupersedesIntersectionAtSamePoint(t *testing.T) {
	e := newTestEngine(t)

	a := e.intern(geom.State{Density: 0.5, Flow: 1})
	f1 := geom.NewInterface(geom.Point{Time: 10, Pos: 10}, 2, a, e.defaultState)
	f2 := geom.NewInterface(geom.Point{Time: 10, Pos: 10}, -1, e.defaultState, a)
	e.addInterface(f1)
	e.addInterface(f2)

	if len(e.pendingInter) != 1 {
		t.Fatalf("expected one pending intersection, have %d", len(e.pendingInter))
	}
	var organic *Event
	for _, ev := range e.pendingInter {
		organic = ev
	}

	// A user interface through the same meeting point converts the
	// pending intersection into a truncation.
	user := geom.NewUserInterface(geom.Point{Time: 0, Pos: 10}, 0, geom.Point{Time: 0, Pos: 10}, geom.Point{Time: 30, Pos: 10}, nil)
	e.append(user)
	organicThird := geom.NewInterface(geom.Point{Time: 8, Pos: 9}, 0.5, a, a)
	e.addInterface(organicThird)

	if !organic.Disabled {
		t.Error("superseded intersection event should be disabled")
	}
	if len(e.pendingTrunc) != 1 {
		t.Fatalf("expected one pending truncation, have %d", len(e.pendingTrunc))
	}
	for _, ev := range e.pendingTrunc {
		if got := len(ev.Truncation.Ifaces); got < 3 {
			t.Errorf("truncation folded %d organic participants, want 3", got)
		}
	}
}
