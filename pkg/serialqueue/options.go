package serialqueue

import "github.com/rs/zerolog"

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithName sets the queue name used in logs, metrics and task IDs.
func WithName(name string) Option {
	return func(q *Queue) {
		if name != "" {
			q.name = name
		}
	}
}

// WithLogger sets the base logger for the queue.
func WithLogger(logger zerolog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithFutureFactory overrides the process-wide future factory for this queue
// only.
func WithFutureFactory(f FutureFactory) Option {
	return func(q *Queue) {
		q.factory = f
	}
}
