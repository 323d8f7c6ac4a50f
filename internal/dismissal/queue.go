package dismissal

import (
	"context"
	"sync"
)

type task struct {
	ctx  context.Context
	run  func(ctx context.Context)
	done chan struct{}
}

// queue runs storage operations one at a time, in submission order.
type queue struct {
	tasks     chan task
	closed    chan struct{}
	closeOnce sync.Once
}

func newQueue() *queue {
	q := &queue{
		tasks:  make(chan task),
		closed: make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *queue) loop() {
	for {
		select {
		case t := <-q.tasks:
			if t.ctx.Err() == nil {
				t.run(t.ctx)
			}
			close(t.done)
		case <-q.closed:
			return
		}
	}
}

// do submits fn and waits until it ran, was skipped because ctx ended, or
// the queue closed.
func (q *queue) do(ctx context.Context, fn func(ctx context.Context)) {
	t := task{ctx: ctx, run: fn, done: make(chan struct{})}
	select {
	case q.tasks <- t:
	case <-q.closed:
		return
	case <-ctx.Done():
		return
	}
	select {
	case <-t.done:
	case <-q.closed:
	}
}

func (q *queue) close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
