// Package serialqueue provides a serial task queue: asynchronous work items
// that execute exactly once, one at a time, with each item's completion
// strictly before the next begins. Each submission returns its own Future,
// so callers observe their task's outcome independently of the queue's
// internal sequencing.
//
// Invariants:
// - Push submissions execute in FIFO order among themselves.
// - Unshift submissions jump the pending line; repeated Unshift while earlier
//   tasks are still pending yields LIFO order among the unshifted tasks.
// - A task's failure settles only that task's Future; the queue advances
//   regardless of outcome.
// - A task must call exactly one of its outcome handles exactly once. Extra
//   calls are no-ops. A task that calls neither blocks the queue permanently:
//   there is no watchdog and no timeout.
//
// Usage:
//
//	queue := serialqueue.New(serialqueue.WithName("api"))
//	defer queue.Close()
//	fut, err := queue.Push(serialqueue.Do(func(ctx context.Context) (interface{}, error) {
//		return client.Call(ctx)
//	}), nil)
//	if err != nil {
//		return err
//	}
//	result, err := fut.Wait(ctx)
package serialqueue
