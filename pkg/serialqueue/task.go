package serialqueue

import (
	"context"
	"fmt"
)

// Task represents an asynchronous unit of work. The queue invokes it with two
// outcome handles; the task must call exactly one of them exactly once, either
// before returning or later from another goroutine. The queue does not advance
// to the next task until one of the handles has been called.
type Task func(ctx context.Context, succeed func(interface{}), fail func(error))

// Do adapts an ordinary call-and-return function into a Task that settles
// synchronously when the function returns.
func Do(fn func(ctx context.Context) (interface{}, error)) Task {
	return func(ctx context.Context, succeed func(interface{}), fail func(error)) {
		value, err := fn(ctx)
		if err != nil {
			fail(err)
			return
		}
		succeed(value)
	}
}

// TaskOptions provides configuration for task execution
type TaskOptions struct {
	WarnAfterMs int
	OnWait      func(waitMs int64, queuePos int)
}

// PanicError reports a task that panicked instead of settling. The panic is
// treated as the task failing: only that task's Future is rejected.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("serialqueue: task panicked: %v", e.Value)
}
