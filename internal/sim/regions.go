package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/shockwave.report/internal/geom"
)

// Region is one homogeneous-state polygon of the finished diagram.
type Region struct {
	Ring   orb.Ring
	State  *geom.State
	Label  string
	Anchor geom.Point
	Area   float64
}

// faceWalkBound caps the face traversal: a walk that fails to close
// within this many steps is degenerate and is discarded.
const faceWalkBound = 4

// Regions decomposes the finalized interface set into closed,
// labelled state polygons within the viewport. It builds a planar
// graph from the clipped interface segments plus the viewport frame,
// extracts minimal faces by greedy maximum-turn traversal, clips each
// candidate to the viewport and drops the outer boundary face.
func (e *Engine) Regions(vp geom.Rect) ([]Region, error) {
	if !vp.Valid() {
		return nil, fmt.Errorf("regions: invalid viewport %+v", vp)
	}

	g := newPlanarGraph()

	bound := orb.Bound{
		Min: orb.Point{vp.MinTime, vp.MinPos},
		Max: orb.Point{vp.MaxTime, vp.MaxPos},
	}

	for _, f := range e.ifaces {
		a, b, ok := clipSegment(f, vp, bound)
		if !ok {
			continue
		}
		g.addEdge(a, b)
	}

	// Viewport corners plus boundary segments between consecutive
	// same-side nodes close the outer frame.
	g.node(geom.Point{Time: vp.MinTime, Pos: vp.MinPos})
	g.node(geom.Point{Time: vp.MinTime, Pos: vp.MaxPos})
	g.node(geom.Point{Time: vp.MaxTime, Pos: vp.MinPos})
	g.node(geom.Point{Time: vp.MaxTime, Pos: vp.MaxPos})
	g.closeFrame(vp)

	rings := g.faces()

	regions := make([]Region, 0, len(rings))
	outerDropped := false
	for _, ring := range rings {
		clipped := clip.Ring(bound, ring)
		if len(clipped) < 4 {
			continue
		}
		centroid, area := planar.CentroidArea(clipped)
		area = math.Abs(area)
		if area <= geom.Tol {
			continue
		}
		// At most one candidate covers the whole viewport: the walk
		// around the outside of the planar graph.
		if !outerDropped && geom.EqualWithin(area, vp.Area()) {
			outerDropped = true
			continue
		}

		anchor := geom.Point{Time: centroid[0], Pos: centroid[1]}
		state := e.ResolveState(anchor, geom.Below)
		regions = append(regions, Region{
			Ring:   clipped,
			State:  state,
			Label:  e.diagram.Label(state.Density),
			Anchor: anchor,
			Area:   area,
		})
	}
	return regions, nil
}

// clipSegment bounds an interface to the viewport, returning the
// clipped segment endpoints. Unbounded ends are closed at the viewport
// time range before position clipping.
func clipSegment(f *geom.Interface, vp geom.Rect, bound orb.Bound) (geom.Point, geom.Point, bool) {
	t0 := math.Max(f.Lower().Time, vp.MinTime)
	t1 := math.Min(f.Upper().Time, vp.MaxTime)
	if t1-t0 <= geom.Tol {
		return geom.Point{}, geom.Point{}, false
	}

	p0, ok0 := f.PosAt(t0)
	p1, ok1 := f.PosAt(t1)
	if !ok0 || !ok1 {
		return geom.Point{}, geom.Point{}, false
	}

	// Clipping a single segment to a rectangle yields at most one part.
	mls := clip.LineString(bound, orb.LineString{{t0, p0}, {t1, p1}})
	if len(mls) == 0 || len(mls[0]) < 2 {
		return geom.Point{}, geom.Point{}, false
	}
	seg := mls[0]
	a := geom.Point{Time: seg[0][0], Pos: seg[0][1]}
	b := geom.Point{Time: seg[len(seg)-1][0], Pos: seg[len(seg)-1][1]}
	if a.Equal(b) {
		return geom.Point{}, geom.Point{}, false
	}
	return a, b, true
}

// planarGraph is an undirected graph over rounded diagram points.
type planarGraph struct {
	index  map[geom.PointKey]int
	points []geom.Point
	adj    [][]int
}

func newPlanarGraph() *planarGraph {
	return &planarGraph{index: make(map[geom.PointKey]int)}
}

func (g *planarGraph) node(p geom.Point) int {
	key := p.Key()
	if i, ok := g.index[key]; ok {
		return i
	}
	i := len(g.points)
	g.index[key] = i
	g.points = append(g.points, p)
	g.adj = append(g.adj, nil)
	return i
}

func (g *planarGraph) addEdge(a, b geom.Point) {
	ai, bi := g.node(a), g.node(b)
	if ai == bi {
		return
	}
	g.link(ai, bi)
	g.link(bi, ai)
}

func (g *planarGraph) link(from, to int) {
	for _, n := range g.adj[from] {
		if n == to {
			return
		}
	}
	g.adj[from] = append(g.adj[from], to)
}

// closeFrame connects consecutive nodes along each viewport side.
func (g *planarGraph) closeFrame(vp geom.Rect) {
	onSide := func(pick func(geom.Point) (float64, float64), at float64) []int {
		var nodes []int
		for i, p := range g.points {
			coord, _ := pick(p)
			if geom.EqualWithin(coord, at) {
				nodes = append(nodes, i)
			}
		}
		sort.Slice(nodes, func(a, b int) bool {
			_, va := pick(g.points[nodes[a]])
			_, vb := pick(g.points[nodes[b]])
			return va < vb
		})
		return nodes
	}

	byTime := func(p geom.Point) (float64, float64) { return p.Time, p.Pos }
	byPos := func(p geom.Point) (float64, float64) { return p.Pos, p.Time }

	sides := [][]int{
		onSide(byTime, vp.MinTime),
		onSide(byTime, vp.MaxTime),
		onSide(byPos, vp.MinPos),
		onSide(byPos, vp.MaxPos),
	}
	for _, nodes := range sides {
		for i := 1; i < len(nodes); i++ {
			a, b := nodes[i-1], nodes[i]
			if a != b {
				g.link(a, b)
				g.link(b, a)
			}
		}
	}
}

type directedEdge struct {
	from, to int
}

// faces walks every unvisited directed edge with a greedy maximum-turn
// traversal: at each vertex the next unvisited outgoing edge with the
// largest counterclockwise turn from the reversed incoming direction is
// taken. Closed walks with more than two vertices become candidate
// polygons; walks that exceed the safety bound are discarded.
func (g *planarGraph) faces() []orb.Ring {
	edgeCount := 0
	for _, ns := range g.adj {
		edgeCount += len(ns)
	}
	maxSteps := faceWalkBound * edgeCount

	visited := make(map[directedEdge]bool, edgeCount)
	var rings []orb.Ring

	for start := range g.adj {
		for _, next := range g.adj[start] {
			if visited[directedEdge{start, next}] {
				continue
			}

			walk := []int{start, next}
			visited[directedEdge{start, next}] = true
			prev, cur := start, next
			closed := false

			for step := 0; step < maxSteps; step++ {
				nxt, ok := g.turn(prev, cur, visited)
				if !ok {
					break
				}
				visited[directedEdge{cur, nxt}] = true
				if nxt == start {
					closed = true
					break
				}
				walk = append(walk, nxt)
				prev, cur = cur, nxt
			}

			if !closed || len(walk) <= 2 {
				continue
			}
			ring := make(orb.Ring, 0, len(walk)+1)
			for _, n := range walk {
				ring = append(ring, orb.Point{g.points[n].Time, g.points[n].Pos})
			}
			ring = append(ring, ring[0])
			rings = append(rings, ring)
		}
	}
	return rings
}

// turn selects the next vertex from cur: the unvisited outgoing edge
// with the largest turn measured counterclockwise from the direction
// back toward prev. Backtracking is a last resort for dead ends.
func (g *planarGraph) turn(prev, cur int, visited map[directedEdge]bool) (int, bool) {
	base := math.Atan2(
		g.points[prev].Pos-g.points[cur].Pos,
		g.points[prev].Time-g.points[cur].Time,
	)

	best := -1
	bestTurn := -1.0
	for _, n := range g.adj[cur] {
		if n == prev || visited[directedEdge{cur, n}] {
			continue
		}
		a := math.Atan2(
			g.points[n].Pos-g.points[cur].Pos,
			g.points[n].Time-g.points[cur].Time,
		)
		turn := math.Mod(a-base+4*math.Pi, 2*math.Pi)
		if turn > bestTurn {
			best, bestTurn = n, turn
		}
	}
	if best >= 0 {
		return best, true
	}
	if !visited[directedEdge{cur, prev}] {
		return prev, true
	}
	return 0, false
}
