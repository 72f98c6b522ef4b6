// Package flow implements the triangular fundamental diagram: the
// piecewise-linear relation between traffic density and flow that
// drives every state lookup in the shockwave engine.
package flow

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/banshee-data/shockwave.report/internal/geom"
)

// Branch selects between the two densities that map to the same flow.
type Branch int

const (
	// FreeFlow selects the density below the capacity density.
	FreeFlow Branch = iota
	// Congested selects the density above the capacity density.
	Congested
)

// FundamentalDiagram is a triangular flow/density relation. Flow rises
// at the free-flow speed up to the capacity density, then falls at the
// wave speed until the jam density. Speeds are m/s, densities veh/m,
// flows veh/s.
type FundamentalDiagram struct {
	freeflowSpeed float64
	waveSpeed     float64
	jamDensity    float64
	initDensity   float64

	capacityDensity float64
	capacity        float64
}

// New validates the diagram parameters and computes the capacity point.
// Violations are configuration errors: they are fatal and surface
// before any simulation work begins.
func New(freeflowSpeed, waveSpeed, jamDensity, initDensity float64) (*FundamentalDiagram, error) {
	if freeflowSpeed <= 0 || waveSpeed <= 0 || jamDensity <= 0 {
		return nil, fmt.Errorf("fundamental diagram: speeds and jam density must be strictly positive (got vf=%g, w=%g, kj=%g)",
			freeflowSpeed, waveSpeed, jamDensity)
	}
	if freeflowSpeed <= waveSpeed {
		return nil, fmt.Errorf("fundamental diagram: free-flow speed %g must exceed wave speed %g", freeflowSpeed, waveSpeed)
	}
	if initDensity < 0 || initDensity > jamDensity {
		return nil, fmt.Errorf("fundamental diagram: initial density %g outside [0, %g]", initDensity, jamDensity)
	}

	// The capacity point is the intersection of the two branches.
	kc := (waveSpeed * jamDensity) / (waveSpeed + freeflowSpeed)
	return &FundamentalDiagram{
		freeflowSpeed:   freeflowSpeed,
		waveSpeed:       waveSpeed,
		jamDensity:      jamDensity,
		initDensity:     initDensity,
		capacityDensity: kc,
		capacity:        kc * freeflowSpeed,
	}, nil
}

// FreeflowSpeed returns the free-flow speed (m/s).
func (d *FundamentalDiagram) FreeflowSpeed() float64 { return d.freeflowSpeed }

// WaveSpeed returns the backward wave speed magnitude (m/s).
func (d *FundamentalDiagram) WaveSpeed() float64 { return d.waveSpeed }

// JamDensity returns the jam density (veh/m).
func (d *FundamentalDiagram) JamDensity() float64 { return d.jamDensity }

// Capacity returns the maximum flow (veh/s).
func (d *FundamentalDiagram) Capacity() float64 { return d.capacity }

// CapacityDensity returns the density that achieves capacity flow.
func (d *FundamentalDiagram) CapacityDensity() float64 { return d.capacityDensity }

// State evaluates the diagram at the given density.
func (d *FundamentalDiagram) State(density float64) (geom.State, error) {
	if density < -geom.Tol || density > d.jamDensity+geom.Tol {
		return geom.State{}, fmt.Errorf("density %g outside [0, %g]", density, d.jamDensity)
	}
	density = math.Max(0, math.Min(density, d.jamDensity))

	var flow float64
	if density <= d.capacityDensity {
		flow = d.freeflowSpeed * density
	} else {
		flow = d.waveSpeed * (d.jamDensity - density)
	}
	return geom.State{Density: density, Flow: flow}, nil
}

// StateByFlow inverts the diagram for a given flow. The mapping is
// two-valued; branch disambiguates between the free-flow and congested
// densities. At capacity flow both branches coincide at the maximal
// state.
func (d *FundamentalDiagram) StateByFlow(flow float64, branch Branch) (geom.State, error) {
	if flow < -geom.Tol || flow > d.capacity+geom.Tol {
		return geom.State{}, fmt.Errorf("flow %g outside [0, %g]", flow, d.capacity)
	}
	flow = math.Max(0, math.Min(flow, d.capacity))

	var density float64
	switch branch {
	case FreeFlow:
		density = flow / d.freeflowSpeed
	case Congested:
		density = d.jamDensity - flow/d.waveSpeed
	default:
		return geom.State{}, fmt.Errorf("unknown branch %d", branch)
	}
	return geom.State{Density: density, Flow: flow}, nil
}

// InterfaceSlope returns the slope of the state-transition line between
// the states at the two densities. Coinciding densities have no
// transition and are reported as an error.
func (d *FundamentalDiagram) InterfaceSlope(d1, d2 float64) (float64, error) {
	s1, err := d.State(d1)
	if err != nil {
		return 0, err
	}
	s2, err := d.State(d2)
	if err != nil {
		return 0, err
	}
	slope, ok := s1.InterfaceSlopeTo(s2)
	if !ok {
		return 0, fmt.Errorf("interface slope undefined between coinciding densities %g and %g", d1, d2)
	}
	return slope, nil
}

// IsQueued reports whether the state's density is strictly above the
// capacity density, i.e. the state sits on the congested branch.
func (d *FundamentalDiagram) IsQueued(s geom.State) bool {
	return s.Density > d.capacityDensity && !geom.EqualWithin(s.Density, d.capacityDensity)
}

// InitialState returns the state implied by the configured initial
// density.
func (d *FundamentalDiagram) InitialState() geom.State {
	s, _ := d.State(d.initDensity)
	return s
}

// MaxState returns the capacity state.
func (d *FundamentalDiagram) MaxState() geom.State {
	return geom.State{Density: d.capacityDensity, Flow: d.capacity}
}

// JamState returns the zero-flow jam state.
func (d *FundamentalDiagram) JamState() geom.State {
	return geom.State{Density: d.jamDensity, Flow: 0}
}

// EmptyState returns the zero-density state.
func (d *FundamentalDiagram) EmptyState() geom.State {
	return geom.State{}
}

// Label returns a deterministic short label for the region holding the
// given density. The empty, initial, capacity and jam densities have
// reserved labels; everything else hashes to a stable fallback.
func (d *FundamentalDiagram) Label(density float64) string {
	switch {
	case geom.EqualWithin(density, 0):
		return "E"
	case geom.EqualWithin(density, d.initDensity):
		return "I"
	case geom.EqualWithin(density, d.capacityDensity):
		return "C"
	case geom.EqualWithin(density, d.jamDensity):
		return "J"
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%d", int64(math.Round(density*1e4)))
	return fmt.Sprintf("S%02d", h.Sum32()%100)
}
