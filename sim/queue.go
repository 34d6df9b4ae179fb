package sim

import "container/heap"

// eventEntry wraps an Event with a sequence ID for deterministic FIFO
// tie-breaking when timestamps are equal.
type eventEntry struct {
	event Event
	seqID uint64
}

// EventQueue is a min-heap ordered by (Timestamp, seqID).
// Implements heap.Interface.
type EventQueue []eventEntry

func (q EventQueue) Len() int { return len(q) }

func (q EventQueue) Less(i, j int) bool {
	if q[i].event.Timestamp() != q[j].event.Timestamp() {
		return q[i].event.Timestamp() < q[j].event.Timestamp()
	}
	return q[i].seqID < q[j].seqID
}

func (q EventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *EventQueue) Push(x any) {
	*q = append(*q, x.(eventEntry))
}

func (q *EventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = eventEntry{}
	*q = old[:n-1]
	return item
}

// schedule pushes e with the next sequence ID.
func (q *EventQueue) schedule(e Event, seq *uint64) {
	heap.Push(q, eventEntry{event: e, seqID: *seq})
	*seq++
}

// peek returns the earliest event without removing it, or nil.
func (q EventQueue) peek() Event {
	if len(q) == 0 {
		return nil
	}
	return q[0].event
}

// popNext removes and returns the earliest event, or nil.
func (q *EventQueue) popNext() Event {
	if len(*q) == 0 {
		return nil
	}
	return heap.Pop(q).(eventEntry).event
}
