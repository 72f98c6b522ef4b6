package geom

// Rect is an axis-aligned viewport in the time-position plane.
type Rect struct {
	MinTime float64 `json:"min_time"`
	MaxTime float64 `json:"max_time"`
	MinPos  float64 `json:"min_pos"`
	MaxPos  float64 `json:"max_pos"`
}

// Area returns the viewport area.
func (r Rect) Area() float64 {
	return (r.MaxTime - r.MinTime) * (r.MaxPos - r.MinPos)
}

// Contains reports whether p lies inside the viewport (tolerantly).
func (r Rect) Contains(p Point) bool {
	return p.Time >= r.MinTime-Tol && p.Time <= r.MaxTime+Tol &&
		p.Pos >= r.MinPos-Tol && p.Pos <= r.MaxPos+Tol
}

// Valid reports whether the viewport has positive extent on both axes.
func (r Rect) Valid() bool {
	return r.MaxTime > r.MinTime+Tol && r.MaxPos > r.MinPos+Tol
}
