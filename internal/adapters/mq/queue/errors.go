package queue

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBusy is returned when the pending queue is at capacity.
	ErrBusy = errors.New("queue is full, try again later")
	// ErrTimeout is returned when a request exceeds its deadline before
	// completing. The deadline covers queue wait plus execution.
	ErrTimeout = errors.New("request timed out")
	// ErrClosed is returned when enqueuing on a closed queue.
	ErrClosed = errors.New("queue is closed")
	// ErrRateLimited matches any per-user rate limit rejection.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// RateLimitedError rejects a request that exceeded the per-user rate
// limit window; RetryAfter says how long until the oldest counted
// request ages out.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrRateLimited) succeed.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
