package engine

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"
)

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry owns every named goroutine and timer of the engine so that a
// navigation or shutdown can stop them all. Starting a name that is already
// running replaces the old task.
type Registry struct {
	mu     sync.Mutex
	parent context.Context
	tasks  map[string]*task
	seq    int
}

func NewRegistry(parent context.Context) *Registry {
	return &Registry{parent: parent, tasks: make(map[string]*task)}
}

// Go runs fn in its own goroutine under name until fn returns or the task is stopped.
func (r *Registry) Go(name string, fn func(ctx context.Context)) {
	r.mu.Lock()
	if old, ok := r.tasks[name]; ok {
		old.cancel()
	}
	ctx, cancel := context.WithCancel(r.parent)
	t := &task{cancel: cancel, done: make(chan struct{})}
	r.tasks[name] = t
	r.mu.Unlock()

	go func() {
		defer close(t.done)
		defer r.release(name, t)
		fn(ctx)
	}()
}

// Every runs fn every interval until stopped.
func (r *Registry) Every(name string, interval time.Duration, fn func(ctx context.Context)) {
	r.Go(name, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	})
}

// After runs fn once after d unless stopped first. Each call gets its own
// slot, so concurrent timers with the same prefix do not replace each other.
func (r *Registry) After(name string, d time.Duration, fn func(ctx context.Context)) {
	r.mu.Lock()
	r.seq++
	key := name + "#" + strconv.Itoa(r.seq)
	r.mu.Unlock()

	r.Go(key, func(ctx context.Context) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			fn(ctx)
		}
	})
}

// Running reports whether a task with name is alive.
func (r *Registry) Running(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[name]
	return ok
}

// Stop cancels name and waits for it to return.
func (r *Registry) Stop(name string) {
	r.mu.Lock()
	t, ok := r.tasks[name]
	r.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
	<-t.done
}

// StopAll cancels every task and waits for all of them, including tasks
// started by a task while it was being stopped.
func (r *Registry) StopAll() {
	stopped := 0
	for {
		r.mu.Lock()
		tasks := make([]*task, 0, len(r.tasks))
		for _, t := range r.tasks {
			tasks = append(tasks, t)
		}
		r.mu.Unlock()
		if len(tasks) == 0 {
			break
		}
		for _, t := range tasks {
			t.cancel()
		}
		for _, t := range tasks {
			<-t.done
		}
		stopped += len(tasks)
	}
	if stopped > 0 {
		log.Printf("🧹 Stopped %d engine tasks", stopped)
	}
}

func (r *Registry) release(name string, t *task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks[name] == t {
		delete(r.tasks, name)
	}
	t.cancel()
}
