package tickloop

import (
	"github.com/eapache/queue"
)

// taskQueue is a strict-FIFO ready queue of callbacks, backed by an unbounded
// ring buffer. Pop always returns the earliest-pushed element still present;
// an element is removed the instant it is popped and never re-inserted by the
// queue itself.
//
// taskQueue is not safe for concurrent use; the scheduler serializes access
// behind its own mutex.
type taskQueue struct {
	ring *queue.Queue
}

func newTaskQueue() *taskQueue {
	return &taskQueue{ring: queue.New()}
}

// Push appends cb to the tail. Always succeeds; capacity is bounded only by
// host memory.
func (q *taskQueue) Push(cb Callback) {
	q.ring.Add(cb)
}

// Pop removes and returns the head. The second return value is false if the
// queue is empty; this is an expected condition, not an error.
func (q *taskQueue) Pop() (Callback, bool) {
	if q.ring.Length() == 0 {
		return Callback{}, false
	}
	return q.ring.Remove().(Callback), true
}

// Len returns the current element count.
func (q *taskQueue) Len() int {
	return q.ring.Length()
}
