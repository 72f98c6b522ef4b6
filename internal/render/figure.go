// Package render turns a finished simulation into presentable output:
// a JSON figure for API clients, vector plots of the time-position
// diagram, and a fundamental diagram chart.
package render

import (
	"fmt"
	"math"

	"github.com/banshee-data/shockwave.report/internal/geom"
	"github.com/banshee-data/shockwave.report/internal/sim"
)

// GraphState is a traffic state as exposed to clients.
type GraphState struct {
	Density float64 `json:"density"`
	Flow    float64 `json:"flow"`
	Label   string  `json:"label"`
}

// GraphLine is a finite segment in the time-position plane.
type GraphLine struct {
	Start geom.Point `json:"start"`
	End   geom.Point `json:"end"`
}

// GraphInterface is a rendered interface segment with the states it
// separates. Above or Below may be null for unresolved user segments.
type GraphInterface struct {
	GraphLine
	Above *GraphState `json:"above"`
	Below *GraphState `json:"below"`
}

// GraphPolygon is a closed homogeneous-state region.
type GraphPolygon struct {
	Points []geom.Point `json:"points"`
	State  GraphState   `json:"state"`
	Anchor geom.Point   `json:"anchor"`
}

// Figure is the complete renderable result of one simulation run.
type Figure struct {
	RunID          string           `json:"run_id"`
	Viewport       geom.Rect        `json:"viewport"`
	UserInterfaces []GraphLine      `json:"user_interfaces"`
	Interfaces     []GraphInterface `json:"interfaces"`
	Polygons       []GraphPolygon   `json:"polygons,omitempty"`
	Trajectories   [][]geom.Point   `json:"trajectories,omitempty"`
}

// Options selects the optional figure layers.
type Options struct {
	Polygons     bool
	Trajectories int // vehicle count; 0 disables tracing
}

// DefaultViewport derives a viewport from the run: the full horizon in
// time, and the user interface extents padded by a quarter of the
// free-flow travel distance in position.
func DefaultViewport(e *sim.Engine) geom.Rect {
	minPos, maxPos := math.Inf(1), math.Inf(-1)
	for _, f := range e.UserInterfaces() {
		for _, p := range userExtent(f) {
			minPos = math.Min(minPos, p.Pos)
			maxPos = math.Max(maxPos, p.Pos)
		}
	}
	if minPos > maxPos {
		minPos, maxPos = 0, 0
	}
	pad := e.Diagram().FreeflowSpeed() * e.Horizon() / 4
	return geom.Rect{
		MinTime: 0,
		MaxTime: e.Horizon(),
		MinPos:  minPos - pad,
		MaxPos:  maxPos + pad,
	}
}

// userExtent returns the original, pre-cutoff endpoints of a user
// interface so repeated truncations do not shrink the viewport.
func userExtent(f *geom.Interface) [2]geom.Point {
	if f.User != nil {
		return [2]geom.Point{f.User.OrigLower, f.User.OrigUpper}
	}
	return [2]geom.Point{f.Lower(), f.Upper()}
}

// Build composes the figure for a completed run.
func Build(e *sim.Engine, runID string, vp geom.Rect, o Options) (*Figure, error) {
	if !e.Ran() {
		return nil, fmt.Errorf("render: engine has not completed a run")
	}
	if !vp.Valid() {
		return nil, fmt.Errorf("render: invalid viewport %+v", vp)
	}

	fig := &Figure{RunID: runID, Viewport: vp}

	for _, f := range e.UserInterfaces() {
		ext := userExtent(f)
		if line, ok := clipLine(ext[0], ext[1], f.Slope, vp); ok {
			fig.UserInterfaces = append(fig.UserInterfaces, line)
		}
	}

	for _, f := range e.Interfaces() {
		if f.IsUser() {
			continue
		}
		line, ok := clipLine(f.Lower(), f.Upper(), f.Slope, vp)
		if !ok {
			continue
		}
		fig.Interfaces = append(fig.Interfaces, GraphInterface{
			GraphLine: line,
			Above:     toGraphState(e, f.Above()),
			Below:     toGraphState(e, f.Below()),
		})
	}

	if o.Polygons {
		regions, err := e.Regions(vp)
		if err != nil {
			return nil, err
		}
		for _, r := range regions {
			poly := GraphPolygon{
				Points: make([]geom.Point, 0, len(r.Ring)),
				State:  GraphState{Density: r.State.Density, Flow: r.State.Flow, Label: r.Label},
				Anchor: r.Anchor,
			}
			for _, p := range r.Ring {
				poly.Points = append(poly.Points, geom.Point{Time: p[0], Pos: p[1]})
			}
			fig.Polygons = append(fig.Polygons, poly)
		}
	}

	if o.Trajectories > 0 {
		fig.Trajectories = Trajectories(e, vp, o.Trajectories)
	}

	return fig, nil
}

func toGraphState(e *sim.Engine, s *geom.State) *GraphState {
	if s == nil {
		return nil
	}
	return &GraphState{Density: s.Density, Flow: s.Flow, Label: e.Diagram().Label(s.Density)}
}

// clipLine bounds an interface line to the viewport time range and
// reports whether a visible segment remains.
func clipLine(lower, upper geom.Point, slope float64, vp geom.Rect) (GraphLine, bool) {
	t0 := math.Max(lower.Time, vp.MinTime)
	t1 := math.Min(upper.Time, vp.MaxTime)
	if t1-t0 <= geom.Tol {
		return GraphLine{}, false
	}
	at := func(t float64) geom.Point {
		return geom.Point{Time: t, Pos: lower.Pos + slope*(t-lower.Time)}
	}
	return GraphLine{Start: at(t0), End: at(t1)}, true
}
