package flow

import (
	"strings"
	"testing"

	"github.com/banshee-data/shockwave.report/internal/geom"
)

// The test diagram: vf=2 m/s, w=1 m/s, kj=5 veh/m, k0=1 veh/m, so the
// capacity density is 5/3 veh/m and the capacity 10/3 veh/s.
func testDiagram(t *testing.T) *FundamentalDiagram {
	t.Helper()
	d, err := New(2, 1, 5, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name          string
		vf, w, kj, k0 float64
		wantErrSubstr string
	}{
		{"valid", 2, 1, 5, 1, ""},
		{"zero freeflow", 0, 1, 5, 1, "strictly positive"},
		{"negative wave", 2, -1, 5, 1, "strictly positive"},
		{"zero jam", 2, 1, 0, 1, "strictly positive"},
		{"wave exceeds freeflow", 1, 2, 5, 1, "wave"},
		{"wave equals freeflow", 1, 1, 5, 1, "wave"},
		{"init above jam", 2, 1, 5, 6, "initial"},
		{"negative init", 2, 1, 5, -1, "initial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.vf, tt.w, tt.kj, tt.k0)
			if tt.wantErrSubstr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErrSubstr)
			}
		})
	}
}

func TestCapacityPoint(t *testing.T) {
	d := testDiagram(t)
	if got, want := d.CapacityDensity(), 5.0/3.0; !geom.EqualWithin(got, want) {
		t.Errorf("CapacityDensity = %g, want %g", got, want)
	}
	if got, want := d.Capacity(), 10.0/3.0; !geom.EqualWithin(got, want) {
		t.Errorf("Capacity = %g, want %g", got, want)
	}
}

func TestStateBranches(t *testing.T) {
	d := testDiagram(t)

	tests := []struct {
		name     string
		density  float64
		wantFlow float64
	}{
		{"empty", 0, 0},
		{"free flow", 1, 2},
		{"at capacity", 5.0 / 3.0, 10.0 / 3.0},
		{"congested", 4, 1},
		{"jam", 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := d.State(tt.density)
			if err != nil {
				t.Fatalf("State(%g): %v", tt.density, err)
			}
			if !geom.EqualWithin(s.Flow, tt.wantFlow) {
				t.Errorf("State(%g).Flow = %g, want %g", tt.density, s.Flow, tt.wantFlow)
			}
		})
	}

	if _, err := d.State(-1); err == nil {
		t.Error("negative density should be rejected")
	}
	if _, err := d.State(6); err == nil {
		t.Error("density above jam should be rejected")
	}
}

func TestStateByFlowRoundTrip(t *testing.T) {
	d := testDiagram(t)

	flows := []float64{0, 0.5, 1, 2, 3, 10.0 / 3.0}
	for _, q := range flows {
		for _, branch := range []Branch{FreeFlow, Congested} {
			s, err := d.StateByFlow(q, branch)
			if err != nil {
				t.Fatalf("StateByFlow(%g, %v): %v", q, branch, err)
			}
			back, err := d.State(s.Density)
			if err != nil {
				t.Fatalf("State(%g): %v", s.Density, err)
			}
			if !geom.EqualWithin(back.Flow, q) {
				t.Errorf("branch %v: flow %g -> density %g -> flow %g", branch, q, s.Density, back.Flow)
			}
		}
	}

	// The two branches disagree everywhere except at capacity.
	free, _ := d.StateByFlow(1, FreeFlow)
	cong, _ := d.StateByFlow(1, Congested)
	if geom.EqualWithin(free.Density, cong.Density) {
		t.Error("branches should produce distinct densities below capacity")
	}
	freeCap, _ := d.StateByFlow(d.Capacity(), FreeFlow)
	congCap, _ := d.StateByFlow(d.Capacity(), Congested)
	if !geom.EqualWithin(freeCap.Density, congCap.Density) {
		t.Error("branches should coincide at capacity")
	}

	if _, err := d.StateByFlow(4, FreeFlow); err == nil {
		t.Error("flow above capacity should be rejected")
	}
	if _, err := d.StateByFlow(-1, Congested); err == nil {
		t.Error("negative flow should be rejected")
	}
}

func TestInterfaceSlopeMatchesConservation(t *testing.T) {
	d := testDiagram(t)

	tests := []struct {
		name   string
		k1, k2 float64
		want   float64
	}{
		{"freeflow to jam", 1, 5, -0.5},
		{"jam to capacity release", 5, 5.0 / 3.0, -1},
		{"freeflow pair", 0.5, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.InterfaceSlope(tt.k1, tt.k2)
			if err != nil {
				t.Fatalf("InterfaceSlope: %v", err)
			}
			if !geom.EqualWithin(got, tt.want) {
				t.Errorf("InterfaceSlope(%g, %g) = %g, want %g", tt.k1, tt.k2, got, tt.want)
			}
		})
	}

	if _, err := d.InterfaceSlope(2, 2); err == nil {
		t.Error("equal densities should have no slope")
	}
}

func TestIsQueued(t *testing.T) {
	d := testDiagram(t)

	if d.IsQueued(geom.State{Density: 1, Flow: 2}) {
		t.Error("free-flow state should not be queued")
	}
	if d.IsQueued(d.MaxState()) {
		t.Error("capacity state itself should not be queued")
	}
	if !d.IsQueued(geom.State{Density: 4, Flow: 1}) {
		t.Error("congested state should be queued")
	}
	if !d.IsQueued(d.JamState()) {
		t.Error("jam should be queued")
	}
}

func TestLabels(t *testing.T) {
	d := testDiagram(t)

	tests := []struct {
		density float64
		want    string
	}{
		{0, "E"},
		{1, "I"},
		{5.0 / 3.0, "C"},
		{5, "J"},
	}
	for _, tt := range tests {
		if got := d.Label(tt.density); got != tt.want {
			t.Errorf("Label(%g) = %q, want %q", tt.density, got, tt.want)
		}
	}

	// Other densities get stable synthetic labels.
	a, b := d.Label(4), d.Label(4)
	if a != b {
		t.Errorf("labels not stable: %q vs %q", a, b)
	}
	if a == "" || a == "E" || a == "I" || a == "C" || a == "J" {
		t.Errorf("synthetic label %q collides with a reserved one", a)
	}
}
