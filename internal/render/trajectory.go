package render

import (
	"math"

	"github.com/banshee-data/shockwave.report/internal/geom"
	"github.com/banshee-data/shockwave.report/internal/sim"
)

// maxTraceSteps bounds a single vehicle trace. A vehicle changes speed
// only when crossing an interface, so this is far more segments than
// any realistic diagram produces.
const maxTraceSteps = 256

// Trajectories traces n representative vehicle paths through the
// finished diagram. Vehicles enter along the left viewport edge at
// evenly spaced positions and move at the speed of whichever region
// they occupy, bending at each interface crossing.
func Trajectories(e *sim.Engine, vp geom.Rect, n int) [][]geom.Point {
	if n <= 0 {
		return nil
	}

	ifaces := e.Interfaces()
	span := vp.MaxPos - vp.MinPos

	out := make([][]geom.Point, 0, n)
	for i := 0; i < n; i++ {
		start := geom.Point{
			Time: vp.MinTime,
			Pos:  vp.MinPos + span*(float64(i)+0.5)/float64(n),
		}
		if path := trace(e, ifaces, vp, start); len(path) > 1 {
			out = append(out, path)
		}
	}
	return out
}

func trace(e *sim.Engine, ifaces []*geom.Interface, vp geom.Rect, start geom.Point) []geom.Point {
	path := []geom.Point{start}
	p := start

	for step := 0; step < maxTraceSteps; step++ {
		state := e.ResolveState(p, geom.Below)
		speed := state.Speed()
		if math.IsInf(speed, 1) {
			speed = e.Diagram().FreeflowSpeed()
		}

		exit := exitPoint(p, speed, vp)
		ray := geom.NewTrajectory(p, speed)

		// Nearest strictly-forward interface crossing wins; otherwise the
		// vehicle leaves the viewport.
		next := exit
		found := false
		for _, f := range ifaces {
			if !f.HasStates() {
				continue
			}
			q, ok := ray.Intersection(f)
			if !ok || q.Time <= p.Time+geom.Tol {
				continue
			}
			if q.Time < next.Time {
				next = q
				found = true
			}
		}

		path = append(path, next)
		if !found {
			break
		}
		p = next
	}
	return path
}

// exitPoint is where a ray from p at the given speed leaves the
// viewport.
func exitPoint(p geom.Point, speed float64, vp geom.Rect) geom.Point {
	t := vp.MaxTime
	if speed > 0 {
		if tTop := p.Time + (vp.MaxPos-p.Pos)/speed; tTop < t {
			t = tTop
		}
	}
	return geom.Point{Time: t, Pos: p.Pos + speed*(t-p.Time)}
}
