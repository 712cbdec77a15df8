package serialqueue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harun/serialqueue/internal/observability"
	"github.com/harun/serialqueue/internal/tracing"
)

// ErrQueueClosed is returned when submitting to a closed queue.
var ErrQueueClosed = errors.New("serialqueue: queue is closed")

// entry pairs a submitted task with the handles that settle its caller-facing
// Future. Entries are created at submission time and consumed when the driver
// pops them for execution.
type entry struct {
	id         string
	task       Task
	ctx        context.Context
	fut        Completer
	enqueuedAt time.Time
	options    TaskOptions
}

// Queue executes submitted tasks strictly one at a time. The driver is a chain
// of one-shot channels with one step per submission; each step pops whatever
// entry currently occupies the head of the pending list, so Unshift
// submissions run before already-pending Push submissions. A step completes
// only when its task reports an outcome, success or failure alike, which is
// what unblocks the next step.
type Queue struct {
	name    string
	logger  zerolog.Logger
	factory FutureFactory // nil means use the process-wide default

	mu         sync.Mutex
	pending    []*entry
	driverTail chan struct{}
	taskSeq    int
	running    int
	closed     bool

	eventHandlers map[string][]EventHandler
	eventMu       sync.RWMutex
}

// New creates an empty queue. The initial driver state is already completed,
// so the first submission runs as soon as its turn is scheduled.
func New(opts ...Option) *Queue {
	observability.EnsureRegistered()

	q := &Queue{
		name:          "default",
		logger:        log.Logger,
		driverTail:    closedStep(),
		eventHandlers: make(map[string][]EventHandler),
	}
	for _, opt := range opts {
		opt(q)
	}

	q.logger.Debug().Str("queue", q.name).Msg("Queue created")
	return q
}

func closedStep() chan struct{} {
	step := make(chan struct{})
	close(step)
	return step
}

// Push appends a task to the tail of the queue and returns its Future.
// Tasks pushed to the tail execute in FIFO order among themselves.
func (q *Queue) Push(task Task, options *TaskOptions) (Future, error) {
	return q.submit(context.Background(), task, options, false)
}

// PushContext is Push with caller-supplied context metadata propagated into
// the task's execution context.
func (q *Queue) PushContext(ctx context.Context, task Task, options *TaskOptions) (Future, error) {
	return q.submit(ctx, task, options, false)
}

// Unshift inserts a task at the head of the queue and returns its Future.
// While earlier tasks are still pending, later Unshift submissions execute
// before earlier ones.
func (q *Queue) Unshift(task Task, options *TaskOptions) (Future, error) {
	return q.submit(context.Background(), task, options, true)
}

// UnshiftContext is Unshift with caller-supplied context metadata propagated
// into the task's execution context.
func (q *Queue) UnshiftContext(ctx context.Context, task Task, options *TaskOptions) (Future, error) {
	return q.submit(ctx, task, options, true)
}

func (q *Queue) submit(ctx context.Context, task Task, options *TaskOptions, front bool) (Future, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	position := "tail"
	if front {
		position = "head"
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"serialqueue",
		"serialqueue.submit",
		attribute.String("queue", q.name),
		attribute.String("position", position),
	)
	defer span.End()

	// StartSpan only yields a trace ID when a recording tracer provider is
	// installed; fall back to a generated one so the trace_id log field is
	// always present.
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.WithTraceID(ctx, tracing.NewTraceID())
	}

	factory := q.futureFactory()
	if factory == nil {
		span.RecordError(ErrNoFutureFactory)
		span.SetStatus(codes.Error, ErrNoFutureFactory.Error())
		return nil, ErrNoFutureFactory
	}

	opts := TaskOptions{}
	if options != nil {
		opts = *options
	}

	if tracing.GetQueueName(ctx) == "" {
		ctx = tracing.WithQueueName(ctx, q.name)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		span.RecordError(ErrQueueClosed)
		span.SetStatus(codes.Error, ErrQueueClosed.Error())
		return nil, ErrQueueClosed
	}

	q.taskSeq++
	taskID := fmt.Sprintf("%s-%d", q.name, q.taskSeq)
	ctx = tracing.WithTaskID(ctx, taskID)

	e := &entry{
		id:         taskID,
		task:       task,
		ctx:        ctx,
		fut:        factory(),
		enqueuedAt: time.Now(),
		options:    opts,
	}

	if front {
		q.pending = append([]*entry{e}, q.pending...)
	} else {
		q.pending = append(q.pending, e)
	}
	depth := len(q.pending)

	// Extend the driver by one step. The step waits for its predecessor and
	// pops whatever entry is at the head when its turn arrives.
	wait := q.driverTail
	step := make(chan struct{})
	q.driverTail = step
	q.mu.Unlock()

	logger := tracing.LoggerFromContext(ctx, q.logger)
	logger.Debug().
		Str("queue", q.name).
		Str("taskId", taskID).
		Str("position", position).
		Int("depth", depth).
		Msg("Task enqueued")

	observability.RecordSubmit(q.name, position, depth)

	q.emit(Event{
		Type:   "enqueued",
		Queue:  q.name,
		TaskID: taskID,
		Data: map[string]interface{}{
			"position": position,
			"depth":    depth,
		},
	})

	if opts.WarnAfterMs > 0 {
		go q.startWarnTimer(e)
	}

	go q.runStep(wait, step)

	return e.fut, nil
}

// futureFactory resolves the factory for this queue: the per-instance
// override if set, otherwise the process-wide default.
func (q *Queue) futureFactory() FutureFactory {
	if q.factory != nil {
		return q.factory
	}
	return DefaultFutureFactory()
}

// runStep executes one driver step: wait for the predecessor, pop the head
// entry, run its task. The step's done channel closes when the task reports
// its outcome, not when the task function returns, so asynchronous settlement
// keeps the queue blocked exactly as long as the task is outstanding.
func (q *Queue) runStep(wait <-chan struct{}, step chan struct{}) {
	<-wait

	q.mu.Lock()
	e := q.pending[0]
	q.pending = q.pending[1:]
	q.running++
	depth := len(q.pending)
	q.mu.Unlock()

	ctx, span := tracing.StartSpan(
		e.ctx,
		"serialqueue",
		"serialqueue.run",
		attribute.String("queue", q.name),
		attribute.String("task_id", e.id),
	)

	logger := tracing.LoggerFromContext(ctx, q.logger)
	waited := time.Since(e.enqueuedAt)
	logger.Debug().
		Str("queue", q.name).
		Str("taskId", e.id).
		Dur("waited", waited).
		Msg("Task started")

	q.emit(Event{
		Type:   "started",
		Queue:  q.name,
		TaskID: e.id,
		Data: map[string]interface{}{
			"waitMs": waited.Milliseconds(),
			"depth":  depth,
		},
	})

	start := time.Now()

	// Settling the caller's Future and advancing the driver are two separate
	// signals: the Future reports this task's outcome, closing the step lets
	// the next task run whatever that outcome was. finish fires at most once
	// even if a misbehaving task invokes both handles.
	var once sync.Once
	finish := func(err error) {
		once.Do(func() {
			duration := time.Since(start)

			q.mu.Lock()
			q.running--
			remaining := len(q.pending)
			q.mu.Unlock()

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				logger.Error().
					Str("queue", q.name).
					Str("taskId", e.id).
					Dur("duration", duration).
					Err(err).
					Msg("Task failed")
			} else {
				logger.Debug().
					Str("queue", q.name).
					Str("taskId", e.id).
					Dur("duration", duration).
					Msg("Task completed")
			}
			span.End()

			observability.RecordSettle(q.name, waited, duration, err == nil, remaining)

			q.emit(Event{
				Type:   "completed",
				Queue:  q.name,
				TaskID: e.id,
				Data: map[string]interface{}{
					"duration": duration.Milliseconds(),
					"success":  err == nil,
				},
			})

			close(step)
		})
	}

	succeed := func(value interface{}) {
		if e.fut.Resolve(value) {
			finish(nil)
		}
	}
	fail := func(err error) {
		if err == nil {
			err = errors.New("serialqueue: task failed")
		}
		if e.fut.Reject(err) {
			finish(err)
		}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				perr := &PanicError{Value: r, Stack: debug.Stack()}
				logger.Error().
					Str("queue", q.name).
					Str("taskId", e.id).
					Interface("panic", r).
					Msg("Task panicked")
				if e.fut.Reject(perr) {
					finish(perr)
				}
			}
		}()
		e.task(ctx, succeed, fail)
	}()
}

// startWarnTimer logs a warning when a task waits in the pending list longer
// than its configured threshold. It never advances or cancels anything.
func (q *Queue) startWarnTimer(e *entry) {
	timer := time.NewTimer(time.Duration(e.options.WarnAfterMs) * time.Millisecond)
	defer timer.Stop()
	<-timer.C

	q.mu.Lock()
	queuePos := -1
	for i, p := range q.pending {
		if p == e {
			queuePos = i
			break
		}
	}
	q.mu.Unlock()

	if queuePos < 0 {
		return
	}

	waitMs := time.Since(e.enqueuedAt).Milliseconds()
	q.logger.Warn().
		Str("queue", q.name).
		Str("taskId", e.id).
		Int64("waitMs", waitMs).
		Int("queuePos", queuePos).
		Msg("Task waiting longer than expected")

	if e.options.OnWait != nil {
		e.options.OnWait(waitMs, queuePos)
	}
}

// Len returns the number of pending, not-yet-started tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Running reports whether a task is currently executing (0 or 1).
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Stats returns a snapshot of the queue's state.
func (q *Queue) Stats() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return map[string]int{
		"pending": len(q.pending),
		"running": q.running,
	}
}

// Wait blocks until every task submitted before the call has completed, or
// ctx is cancelled. A stalled task (one that never settles) blocks Wait
// until ctx cancellation.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	tail := q.driverTail
	q.mu.Unlock()

	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting submissions. Tasks already queued or running still
// execute; their Futures settle normally. Close is idempotent.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.logger.Debug().Str("queue", q.name).Msg("Queue closed")
	return nil
}
