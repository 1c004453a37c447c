// Package worker runs background tasks on one dedicated goroutine pinned
// to its own OS thread, one task at a time, in submission order.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"pkt.systems/pslog"
)

var (
	// ErrStopped indicates the task never ran because the supervisor stopped.
	ErrStopped = errors.New("worker stopped")
	// ErrTaskPanicked indicates the task panicked while running.
	ErrTaskPanicked = errors.New("worker task panicked")
)

// Options configures Start.
type Options struct {
	// Slots is the number of concurrently running tasks. Only 1 is supported.
	Slots int
	// Name labels the worker in logs.
	Name   string
	Logger pslog.Logger
}

// PanicError carries a recovered panic from a task.
type PanicError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: task %q: %v", ErrTaskPanicked, e.Task, e.Value)
}

// Unwrap lets errors.Is match ErrTaskPanicked.
func (e *PanicError) Unwrap() error {
	return ErrTaskPanicked
}

// Supervisor owns the worker goroutine.
type Supervisor struct {
	q      *queue
	cancel context.CancelFunc
	done   chan struct{}
	log    pslog.Logger
	stop   sync.Once
}

// Handle submits tasks to a running supervisor. The zero value rejects
// every task with ErrStopped.
type Handle struct {
	q *queue
}

// Start launches the worker and returns once it has published its handle.
func Start(ctx context.Context, opts Options) (*Supervisor, Handle, error) {
	if opts.Slots != 1 {
		return nil, Handle{}, fmt.Errorf("worker slots must be 1, got %d", opts.Slots)
	}
	if opts.Logger == nil {
		return nil, Handle{}, errors.New("worker logger is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	name := opts.Name
	if name == "" {
		name = "worker"
	}
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Supervisor{
		q:      newQueue(),
		cancel: cancel,
		done:   make(chan struct{}),
		log:    opts.Logger.With("worker", name),
	}
	ready := make(chan Handle)
	go s.run(taskCtx, ready)
	handle := <-ready
	s.log.Debug("worker start ok")
	return s, handle, nil
}

// Stop rejects queued tasks with ErrStopped and waits for the running task.
// If ctx expires first the running task's context is cancelled and ctx.Err
// is returned.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.stop.Do(func() {
		dropped := s.q.close()
		for _, t := range dropped {
			t.abort(ErrStopped)
		}
		s.log.Debug("worker stop requested", "dropped", len(dropped))
	})
	select {
	case <-s.done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		s.log.Warn("worker stop timed out", "err", ctx.Err())
		return ctx.Err()
	}
}

func (s *Supervisor) run(ctx context.Context, ready chan<- Handle) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)
	ready <- Handle{q: s.q}
	for {
		t, ok := s.q.next()
		if !ok {
			s.log.Debug("worker exit")
			return
		}
		s.exec(ctx, t)
	}
}

func (s *Supervisor) exec(ctx context.Context, t task) {
	started := time.Now()
	s.log.Debug("worker task start", "task", t.name)
	err := t.run(ctx)
	if err != nil {
		s.log.Error("worker task failed", "task", t.name, "err", err, "elapsed", time.Since(started))
		return
	}
	s.log.Debug("worker task ok", "task", t.name, "elapsed", time.Since(started))
}

// Queued reports how many tasks wait behind the running one.
func (h Handle) Queued() int {
	if h.q == nil {
		return 0
	}
	return h.q.len()
}

// Spawn queues work on the worker and returns immediately.
func Spawn[T any](h Handle, name string, work func(context.Context) T) *Join[T] {
	j := newJoin[T]()
	t := task{
		name: name,
		run: func(ctx context.Context) error {
			v, err := call(ctx, name, work)
			j.resolve(v, err)
			return err
		},
		abort: func(err error) {
			var zero T
			j.resolve(zero, err)
		},
	}
	if h.q == nil || !h.q.push(t) {
		t.abort(ErrStopped)
	}
	return j
}

func call[T any](ctx context.Context, name string, work func(context.Context) T) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: name, Value: r, Stack: debug.Stack()}
		}
	}()
	return work(ctx), nil
}

// Join is the pending result of a spawned task.
type Join[T any] struct {
	done      chan struct{}
	once      sync.Once
	mu        sync.Mutex
	value     T
	err       error
	callbacks []func(T, error)
}

func newJoin[T any]() *Join[T] {
	return &Join[T]{done: make(chan struct{})}
}

// Done is closed when the task has resolved.
func (j *Join[T]) Done() <-chan struct{} {
	return j.done
}

// Result blocks until the task resolves.
func (j *Join[T]) Result() (T, error) {
	<-j.done
	return j.value, j.err
}

// OnDone registers fn to run once the task resolves. fn runs on the
// resolving goroutine, or immediately when the task already resolved.
func (j *Join[T]) OnDone(fn func(T, error)) {
	if fn == nil {
		return
	}
	j.mu.Lock()
	select {
	case <-j.done:
		v, err := j.value, j.err
		j.mu.Unlock()
		fn(v, err)
		return
	default:
	}
	j.callbacks = append(j.callbacks, fn)
	j.mu.Unlock()
}

func (j *Join[T]) resolve(v T, err error) {
	j.once.Do(func() {
		j.mu.Lock()
		j.value, j.err = v, err
		callbacks := j.callbacks
		j.callbacks = nil
		close(j.done)
		j.mu.Unlock()
		for _, fn := range callbacks {
			fn(v, err)
		}
	})
}
