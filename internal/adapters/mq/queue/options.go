package queue

import "time"

// Option configures a Queue.
type Option func(*Queue)

// WithConcurrency sets how many requests may execute at once. Values
// below 1 are ignored; the default is serial execution.
func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n >= 1 {
			q.concurrency = n
		}
	}
}

// WithMaxPending caps the number of requests waiting to execute.
func WithMaxPending(n int) Option {
	return func(q *Queue) {
		if n >= 1 {
			q.maxPending = n
		}
	}
}

// WithRequestTimeout bounds the life of a request from enqueue to
// completion, covering both queue wait and execution.
func WithRequestTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.requestTimeout = d
		}
	}
}

// WithRateLimit allows at most count admissions per user within the
// sliding window.
func WithRateLimit(count int, window time.Duration) Option {
	return func(q *Queue) {
		if count >= 1 {
			q.rateLimit = count
		}
		if window > 0 {
			q.rateWindow = window
		}
	}
}

// WithCleanupInterval sets how often idle user ledgers are pruned.
func WithCleanupInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.cleanupInterval = d
		}
	}
}
