package serialqueue

import (
	"context"
	"errors"
	"sync"
)

// ErrNoFutureFactory is returned by submissions when the process-wide future
// factory has been cleared and the queue has no per-instance override.
var ErrNoFutureFactory = errors.New("serialqueue: no future factory configured")

// Future is the caller-facing handle for a single submission's outcome. It
// settles exactly once, with either a value or an error.
type Future interface {
	// Done is closed once the future has settled.
	Done() <-chan struct{}
	// Result returns the settled outcome. Before Done is closed it returns
	// the zero outcome (nil, nil).
	Result() (interface{}, error)
	// Wait blocks until the future settles or ctx is cancelled.
	Wait(ctx context.Context) (interface{}, error)
}

// Completer is the producer side of a Future. Resolve and Reject report
// whether the call settled the future; once settled, further calls are no-ops
// and return false.
type Completer interface {
	Future
	Resolve(value interface{}) bool
	Reject(err error) bool
}

// FutureFactory constructs the Completer backing each submission's Future.
type FutureFactory func() Completer

type future struct {
	done    chan struct{}
	mu      sync.Mutex
	settled bool
	value   interface{}
	err     error
}

// NewFuture returns the built-in channel-backed Completer. It is the default
// FutureFactory.
func NewFuture() Completer {
	return &future{done: make(chan struct{})}
}

func (f *future) Done() <-chan struct{} {
	return f.done
}

func (f *future) Result() (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

func (f *future) Wait(ctx context.Context) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *future) Resolve(value interface{}) bool {
	return f.settle(value, nil)
}

func (f *future) Reject(err error) bool {
	if err == nil {
		err = errors.New("serialqueue: task failed")
	}
	return f.settle(nil, err)
}

func (f *future) settle(value interface{}, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = value
	f.err = err
	f.mu.Unlock()

	close(f.done)
	return true
}

var (
	factoryMu      sync.RWMutex
	defaultFactory FutureFactory = NewFuture
)

// SetFutureFactory replaces the process-wide default future factory used by
// queues without a per-instance override. Passing nil clears the default;
// submissions on unconfigured queues then fail with ErrNoFutureFactory.
func SetFutureFactory(f FutureFactory) {
	factoryMu.Lock()
	defaultFactory = f
	factoryMu.Unlock()
}

// DefaultFutureFactory returns the current process-wide future factory.
func DefaultFutureFactory() FutureFactory {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	return defaultFactory
}
