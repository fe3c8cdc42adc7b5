package prim

// Task is the mechanism layer's view of a schedulable task.
//
// Park suspends the calling task until a matching Unpark. Unpark delivers
// exactly one wake token and never blocks; a token delivered before the
// task reaches Park is retained, which is what makes the condition
// variable's release-then-park transition immune to missed wakeups.
type Task interface {
	Park()
	Unpark()
}

// WaitQueue is a FIFO queue of parked tasks.
//
// Every blocking primitive embeds one. The queue itself is not synchronized;
// each primitive serializes access with its own internal lock. Wake order is
// strictly first-in first-out, the only fairness this subsystem promises.
type WaitQueue struct {
	tasks []Task
}

// Enqueue appends t to the tail of the queue.
func (q *WaitQueue) Enqueue(t Task) {
	q.tasks = append(q.tasks, t)
}

// Dequeue removes and returns the head of the queue, or nil when empty.
func (q *WaitQueue) Dequeue() Task {
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t
}

// Len returns the number of parked tasks.
func (q *WaitQueue) Len() int {
	return len(q.tasks)
}
