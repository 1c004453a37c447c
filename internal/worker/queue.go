package worker

import (
	"context"
	"sync"
)

type task struct {
	name  string
	run   func(context.Context) error
	abort func(error)
}

// queue is an unbounded FIFO with a single consumer.
type queue struct {
	mu     sync.Mutex
	items  []task
	closed bool
	wake   chan struct{}
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

func (q *queue) push(t task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, t)
	q.mu.Unlock()
	q.signal()
	return true
}

func (q *queue) next() (task, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return task{}, false
		}
		if len(q.items) > 0 {
			t := q.items[0]
			q.items[0] = task{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return t, true
		}
		q.mu.Unlock()
		<-q.wake
	}
}

func (q *queue) close() []task {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	items := q.items
	q.items = nil
	q.mu.Unlock()
	q.signal()
	return items
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
