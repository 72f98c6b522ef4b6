package sim

import (
	"container/heap"

	"github.com/banshee-data/shockwave.report/internal/geom"
)

// eventQueue orders pending events by time (tolerant comparison), then
// priority (ascending), then position (descending), then insertion
// order. The order is total and deterministic, so identical inputs
// reproduce identical diagrams.
type eventQueue []*Event

var _ heap.Interface = (*eventQueue)(nil)

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if !geom.EqualWithin(a.Point.Time, b.Point.Time) {
		return a.Point.Time < b.Point.Time
	}
	if pa, pb := a.priority(), b.priority(); pa != pb {
		return pa < pb
	}
	if !geom.EqualWithin(a.Point.Pos, b.Point.Pos) {
		return a.Point.Pos > b.Point.Pos
	}
	return a.seq < b.seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*Event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
