package geom

import "fmt"

// Point is a location in the time-position plane. Time is the x axis
// (seconds), position the y axis (meters).
type Point struct {
	Time float64 `json:"time"`
	Pos  float64 `json:"position"`
}

// PointKey is the rounded map-key representation of a Point. Points
// equal within Tol produce the same key.
type PointKey struct {
	T, P int64
}

// Key returns the rounded representation of p for use as a map key.
func (p Point) Key() PointKey {
	return PointKey{T: roundKey(p.Time), P: roundKey(p.Pos)}
}

// Equal reports whether p and q coincide within tolerance.
func (p Point) Equal(q Point) bool {
	return EqualWithin(p.Time, q.Time) && EqualWithin(p.Pos, q.Pos)
}

// SlopeTo returns the slope of the line through p and q. The second
// return is false when the points share a time and the slope is
// undefined.
func (p Point) SlopeTo(q Point) (float64, bool) {
	if EqualWithin(p.Time, q.Time) {
		return 0, false
	}
	return (p.Pos - q.Pos) / (p.Time - q.Time), true
}

func (p Point) String() string {
	return fmt.Sprintf("(t=%g, x=%g)", p.Time, p.Pos)
}
