// Package tasks hands work from loader goroutines back to the main loop.
package tasks

import "sync"

// Queue collects closures posted from any goroutine and runs them on the
// goroutine that calls Drain.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	signal  chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Post schedules fn for the next Drain. Safe for concurrent use.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Drain runs every closure posted so far, in order, and returns how many ran.
// Closures posted while draining wait for the next call.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Len returns the number of closures waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Ready is signalled after a Post. It lets an idle loop sleep until work arrives.
func (q *Queue) Ready() <-chan struct{} { return q.signal }
