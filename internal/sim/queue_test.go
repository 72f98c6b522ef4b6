package sim

import (
	"container/heap"
	"testing"

	"github.com/banshee-data/shockwave.report/internal/geom"
)

func popAll(q *eventQueue) []*Event {
	heap.Init(q)
	var out []*Event
	for q.Len() > 0 {
		out = append(out, heap.Pop(q).(*Event))
	}
	return out
}

func TestQueueOrdersByTime(t *testing.T) {
	late := &Event{Point: geom.Point{Time: 5, Pos: 0}, Capacity: &CapacityEvent{}, seq: 0}
	early := &Event{Point: geom.Point{Time: 3, Pos: 0}, Capacity: &CapacityEvent{}, seq: 1}

	q := eventQueue{late, early}
	got := popAll(&q)
	if got[0] != early || got[1] != late {
		t.Error("events should pop in time order")
	}
}

func TestQueueOrdersByPriorityWithinTimeBatch(t *testing.T) {
	capEv := &Event{Point: geom.Point{Time: 5, Pos: 0}, Capacity: &CapacityEvent{}, seq: 0}
	truncEv := &Event{Point: geom.Point{Time: 5, Pos: 0}, Truncation: &TruncationEvent{}, seq: 1}
	interEv := &Event{Point: geom.Point{Time: 5, Pos: 0}, Intersection: &IntersectionEvent{}, seq: 2}

	q := eventQueue{capEv, truncEv, interEv}
	got := popAll(&q)
	if got[0] != truncEv || got[1] != interEv || got[2] != capEv {
		t.Error("within a time batch, truncation precedes intersection precedes capacity")
	}
}

func TestQueuePriorityAppliesAcrossTolerantlyEqualTimes(t *testing.T) {
	capEv := &Event{Point: geom.Point{Time: 5, Pos: 0}, Capacity: &CapacityEvent{}, seq: 0}
	truncEv := &Event{Point: geom.Point{Time: 5 + geom.Tol/2, Pos: 0}, Truncation: &TruncationEvent{}, seq: 1}

	q := eventQueue{capEv, truncEv}
	got := popAll(&q)
	if got[0] != truncEv {
		t.Error("a truncation tolerantly at the same time should precede a capacity event")
	}
}

func TestQueueOrdersByPositionDescendingThenSeq(t *testing.T) {
	low := &Event{Point: geom.Point{Time: 5, Pos: 2}, Capacity: &CapacityEvent{}, seq: 0}
	high := &Event{Point: geom.Point{Time: 5, Pos: 8}, Capacity: &CapacityEvent{}, seq: 1}
	lowLater := &Event{Point: geom.Point{Time: 5, Pos: 2}, Capacity: &CapacityEvent{}, seq: 2}

	q := eventQueue{low, high, lowLater}
	got := popAll(&q)
	if got[0] != high {
		t.Error("higher position should pop first within a batch")
	}
	if got[1] != low || got[2] != lowLater {
		t.Error("equal positions should pop in insertion order")
	}
}
