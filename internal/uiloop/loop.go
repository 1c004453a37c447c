// Package uiloop provides the single-threaded event loop that owns all
// UI-observable state. Other goroutines reach it only through Post and
// Complete.
package uiloop

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"pkt.systems/pslog"
)

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("ui loop already running")

// TaskID identifies a pending background reaction.
type TaskID uint64

// Loop is a cooperative event loop driven by Run.
type Loop struct {
	log pslog.Logger

	mu      sync.Mutex
	queue   []func()
	nextID  TaskID
	pending map[TaskID]func(any)
	started bool
	stopped bool
	quitErr error

	wake chan struct{}
	quit chan struct{}
}

// New constructs a loop. Run must be called to start dispatching.
func New(logger pslog.Logger) *Loop {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Loop{
		log:     logger,
		pending: make(map[TaskID]func(any)),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
}

// Run dispatches posted closures on the calling goroutine, which is locked
// to its OS thread for the duration, until Quit is called or ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.started = true
	l.mu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	l.log.Debug("ui loop start")
	for {
		if done, err := l.quitting(); done {
			l.log.Debug("ui loop stop", "err", err)
			return err
		}
		select {
		case <-ctx.Done():
			l.log.Debug("ui loop stop", "err", ctx.Err())
			return ctx.Err()
		case <-l.quit:
			continue
		case <-l.wake:
		}
		for _, fn := range l.drain() {
			l.dispatch(fn)
		}
	}
}

// Post queues fn to run on the loop goroutine. It never blocks.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Expect registers reaction for a background result and returns its id.
func (l *Loop) Expect(reaction func(any)) TaskID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.pending[id] = reaction
	return id
}

// Complete delivers the result for id. The registered reaction runs on the
// loop goroutine when err is nil; a non-nil err stops the loop with it.
// Completions for unknown ids are logged and dropped.
func (l *Loop) Complete(id TaskID, value any, err error) {
	l.Post(func() {
		l.mu.Lock()
		reaction, ok := l.pending[id]
		delete(l.pending, id)
		l.mu.Unlock()
		if !ok {
			l.log.Warn("ui loop completion dropped", "task_id", uint64(id), "err", err)
			return
		}
		if err != nil {
			l.log.Error("ui loop task failed", "task_id", uint64(id), "err", err)
			l.Quit(fmt.Errorf("background task %d: %w", id, err))
			return
		}
		if reaction != nil {
			reaction(value)
		}
	})
}

// Quit stops the loop after the current iteration. The first call wins.
func (l *Loop) Quit(err error) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.quitErr = err
	l.mu.Unlock()
	close(l.quit)
}

// Pending reports how many registered reactions are still waiting.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Loop) quitting() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped, l.quitErr
}

func (l *Loop) drain() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

func (l *Loop) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("ui loop handler panicked", "panic", r, "stack", string(debug.Stack()))
			l.Quit(fmt.Errorf("ui handler panicked: %v", r))
		}
	}()
	fn()
}
