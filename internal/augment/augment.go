// Package augment provides the built-in scenario perturbations: fixed
// and moving bottlenecks and signalized intersections. Each augmenter
// installs its user-caused interfaces and capacity events into an
// engine during setup.
package augment

import (
	"fmt"

	"github.com/banshee-data/shockwave.report/internal/geom"
	"github.com/banshee-data/shockwave.report/internal/sim"
)

// TrafficLight models a pre-timed signal at a fixed position. The cycle
// starts green at time zero shifted by Offset; every red phase closes
// the road completely for Red seconds.
type TrafficLight struct {
	Pos    float64
	Green  float64
	Red    float64
	Offset float64
}

// NewTrafficLight validates and builds a signal augmenter.
func NewTrafficLight(pos, green, red, offset float64) (*TrafficLight, error) {
	if green <= 0 || red <= 0 {
		return nil, fmt.Errorf("traffic light: green and red durations must be positive, got %g/%g", green, red)
	}
	return &TrafficLight{Pos: pos, Green: green, Red: red, Offset: offset}, nil
}

// Bottleneck returns the capacity while the light is red.
func (tl *TrafficLight) Bottleneck() float64 { return 0 }

// Init installs one horizontal user interface and a pair of capacity
// events per red phase up to the engine horizon.
func (tl *TrafficLight) Init(e *sim.Engine) error {
	cycle := tl.Green + tl.Red
	for start := tl.Offset + tl.Green; start < e.Horizon(); start += cycle {
		end := start + tl.Red
		lower := geom.Point{Time: start, Pos: tl.Pos}
		upper := geom.Point{Time: end, Pos: tl.Pos}
		h := e.AddUserInterface(lower, 0, lower, upper, tl)

		if err := e.ScheduleCapacity(lower, h, sim.Unset, 0); err != nil {
			return fmt.Errorf("traffic light at pos %g: %w", tl.Pos, err)
		}
		if err := e.ScheduleCapacity(upper, h, 0, sim.Unset); err != nil {
			return fmt.Errorf("traffic light at pos %g: %w", tl.Pos, err)
		}
	}
	return nil
}

// HorizontalBottleneck models a stationary capacity restriction active
// over a time window, such as a work zone or an incident.
type HorizontalBottleneck struct {
	Pos      float64
	From     float64
	Until    float64
	Capacity float64
}

// NewHorizontalBottleneck validates and builds a stationary bottleneck.
func NewHorizontalBottleneck(pos, from, until, capacity float64) (*HorizontalBottleneck, error) {
	if until <= from {
		return nil, fmt.Errorf("bottleneck: window end %g not after start %g", until, from)
	}
	if capacity < 0 {
		return nil, fmt.Errorf("bottleneck: capacity must be non-negative, got %g", capacity)
	}
	return &HorizontalBottleneck{Pos: pos, From: from, Until: until, Capacity: capacity}, nil
}

// Bottleneck returns the restricted capacity.
func (hb *HorizontalBottleneck) Bottleneck() float64 { return hb.Capacity }

func (hb *HorizontalBottleneck) Init(e *sim.Engine) error {
	lower := geom.Point{Time: hb.From, Pos: hb.Pos}
	upper := geom.Point{Time: hb.Until, Pos: hb.Pos}
	h := e.AddUserInterface(lower, 0, lower, upper, hb)

	if err := e.ScheduleCapacity(lower, h, sim.Unset, hb.Capacity); err != nil {
		return fmt.Errorf("bottleneck at pos %g: %w", hb.Pos, err)
	}
	if err := e.ScheduleCapacity(upper, h, hb.Capacity, sim.Unset); err != nil {
		return fmt.Errorf("bottleneck at pos %g: %w", hb.Pos, err)
	}
	return nil
}

// LineBottleneck models a moving capacity restriction, such as a slow
// vehicle travelling from Start to End.
type LineBottleneck struct {
	Start    geom.Point
	End      geom.Point
	Capacity float64
}

// NewLineBottleneck validates and builds a moving bottleneck.
func NewLineBottleneck(start, end geom.Point, capacity float64) (*LineBottleneck, error) {
	if end.Time <= start.Time {
		return nil, fmt.Errorf("moving bottleneck: end time %g not after start time %g", end.Time, start.Time)
	}
	if capacity < 0 {
		return nil, fmt.Errorf("moving bottleneck: capacity must be non-negative, got %g", capacity)
	}
	return &LineBottleneck{Start: start, End: end, Capacity: capacity}, nil
}

// Bottleneck returns the restricted capacity.
func (lb *LineBottleneck) Bottleneck() float64 { return lb.Capacity }

func (lb *LineBottleneck) Init(e *sim.Engine) error {
	slope := (lb.End.Pos - lb.Start.Pos) / (lb.End.Time - lb.Start.Time)
	h := e.AddUserInterface(lb.Start, slope, lb.Start, lb.End, lb)

	if err := e.ScheduleCapacity(lb.Start, h, sim.Unset, lb.Capacity); err != nil {
		return fmt.Errorf("moving bottleneck: %w", err)
	}
	if err := e.ScheduleCapacity(lb.End, h, lb.Capacity, sim.Unset); err != nil {
		return fmt.Errorf("moving bottleneck: %w", err)
	}
	return nil
}
