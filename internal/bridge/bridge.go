// Package bridge runs work on the background worker and hands the result
// back to the UI loop.
package bridge

import (
	"context"
	"fmt"

	"pkt.systems/oxycord/internal/uiloop"
	"pkt.systems/oxycord/internal/worker"
)

// Submit spawns work on h and arranges for onComplete to run on loop with
// the result. It returns immediately.
//
// onComplete runs exactly once, and only when work returned normally. If
// the task panicked or the worker stopped before running it, the loop
// stops with that error instead. onComplete must not block.
func Submit[T any](loop *uiloop.Loop, h worker.Handle, name string, work func(context.Context) T, onComplete func(T)) uiloop.TaskID {
	id := loop.Expect(func(v any) {
		if onComplete == nil {
			return
		}
		result, ok := v.(T)
		if !ok && v != nil {
			loop.Quit(fmt.Errorf("task %q: unexpected result type %T", name, v))
			return
		}
		onComplete(result)
	})
	worker.Spawn(h, name, work).OnDone(func(v T, err error) {
		loop.Complete(id, v, err)
	})
	return id
}
