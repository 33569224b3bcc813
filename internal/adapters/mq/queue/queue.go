// Package queue serializes query execution. The upstream pipeline
// tolerates little concurrency, so requests are admitted through a
// bounded FIFO with per-user rate limiting and executed by a small
// worker pool, one at a time by default.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardbot/pkg/logger"
	"cardbot/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultConcurrency     = 1
	defaultMaxPending      = 50
	defaultRequestTimeout  = 60 * time.Second
	defaultRateLimit       = 5
	defaultRateWindow      = 60 * time.Second
	defaultCleanupInterval = 5 * time.Minute
)

// Task is the unit of work a request carries. The context is cancelled
// when the queue shuts down, not when the request times out; a timed
// out request's task may still be running when the outcome is
// delivered.
type Task func(ctx context.Context) (any, error)

// Outcome is the terminal result of an admitted request.
type Outcome struct {
	Value any
	Err   error
}

// Status is a point-in-time snapshot of the queue.
type Status struct {
	Active           int `json:"active"`
	Queued           int `json:"queued"`
	ConcurrencyLimit int `json:"concurrency_limit"`
	TrackedUsers     int `json:"tracked_users"`
}

// request is one admitted unit of work.
type request struct {
	id     string
	userID string
	task   Task
	out    chan Outcome
	timer  *time.Timer
	done   bool
}

// Queue admits, rate limits, and executes tasks.
type Queue struct {
	mu              sync.Mutex
	pending         []*request
	active          int
	ledger          map[string][]time.Time
	closed          bool
	concurrency     int
	maxPending      int
	requestTimeout  time.Duration
	rateLimit       int
	rateWindow      time.Duration
	cleanupInterval time.Duration
	baseCtx         context.Context
	cancel          context.CancelFunc
	cleanupStop     chan struct{}
	log             logger.Logger
}

// New creates a queue and starts its ledger cleanup loop.
func New(opts ...Option) *Queue {
	q := &Queue{
		ledger:          make(map[string][]time.Time),
		concurrency:     defaultConcurrency,
		maxPending:      defaultMaxPending,
		requestTimeout:  defaultRequestTimeout,
		rateLimit:       defaultRateLimit,
		rateWindow:      defaultRateWindow,
		cleanupInterval: defaultCleanupInterval,
		cleanupStop:     make(chan struct{}),
		log:             logger.Named("queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.baseCtx, q.cancel = context.WithCancel(context.Background())

	go q.cleanupLoop()

	metrics.UpdateQueueDepth(0)
	metrics.UpdateQueueActive(0)
	return q
}

// Enqueue admits a task for userID and returns a channel that will
// receive exactly one Outcome. Admission fails fast with ErrBusy,
// ErrClosed, or a *RateLimitedError; nothing is charged against the
// user's rate window on rejection. The request timeout starts now,
// before execution does.
func (q *Queue) Enqueue(ctx context.Context, userID string, task Task) (<-chan Outcome, error) {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	// Rate limit first: a user who is both limited and facing a full
	// queue should get the retry-after hint, not the generic busy reply.
	if retryAfter, limited := q.checkRateLocked(userID); limited {
		q.mu.Unlock()
		metrics.RecordAdmissionRejected("rate_limited")
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}
	if len(q.pending) >= q.maxPending {
		q.mu.Unlock()
		metrics.RecordAdmissionRejected("busy")
		return nil, ErrBusy
	}
	q.ledger[userID] = append(q.ledger[userID], time.Now())

	req := &request{
		id:     uuid.NewString(),
		userID: userID,
		task:   task,
		out:    make(chan Outcome, 1),
	}
	req.timer = time.AfterFunc(q.requestTimeout, func() {
		q.expire(req)
	})
	q.pending = append(q.pending, req)
	depth := len(q.pending)
	q.mu.Unlock()

	metrics.UpdateQueueDepth(depth)
	q.log.Debug(ctx, "request enqueued",
		logger.String("request_id", req.id),
		logger.Int("depth", depth))

	q.advance()
	return req.out, nil
}

// Do enqueues the task and blocks for its outcome or ctx cancellation.
func (q *Queue) Do(ctx context.Context, userID string, task Task) (any, error) {
	out, err := q.Enqueue(ctx, userID, task)
	if err != nil {
		return nil, err
	}
	select {
	case o := <-out:
		return o.Value, o.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status reports current queue occupancy.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Active:           q.active,
		Queued:           len(q.pending),
		ConcurrencyLimit: q.concurrency,
		TrackedUsers:     len(q.ledger),
	}
}

// Close stops admissions, cancels running tasks, and fails every
// pending request with ErrClosed.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	close(q.cleanupStop)
	q.cancel()
	for _, req := range pending {
		q.finish(req, Outcome{Err: ErrClosed})
	}
	metrics.UpdateQueueDepth(0)
	return nil
}

// checkRateLocked prunes the user's window and reports whether another
// admission would exceed the limit. Caller holds q.mu.
func (q *Queue) checkRateLocked(userID string) (time.Duration, bool) {
	now := time.Now()
	cutoff := now.Add(-q.rateWindow)

	stamps := q.ledger[userID]
	kept := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(q.ledger, userID)
	} else {
		q.ledger[userID] = kept
	}

	if len(kept) < q.rateLimit {
		return 0, false
	}
	return kept[0].Add(q.rateWindow).Sub(now), true
}

// advance starts pending requests while worker slots are free.
func (q *Queue) advance() {
	for {
		q.mu.Lock()
		if q.closed || q.active >= q.concurrency || len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		req := q.pending[0]
		q.pending = q.pending[1:]
		q.active++
		depth := len(q.pending)
		active := q.active
		q.mu.Unlock()

		metrics.UpdateQueueDepth(depth)
		metrics.UpdateQueueActive(active)
		go q.run(req)
	}
}

// run executes one request and frees its worker slot.
func (q *Queue) run(req *request) {
	start := time.Now()
	value, err := req.task(q.baseCtx)
	metrics.ObserveQueryDuration(float64(time.Since(start).Milliseconds()))

	q.finish(req, Outcome{Value: value, Err: err})

	q.mu.Lock()
	q.active--
	active := q.active
	q.mu.Unlock()
	metrics.UpdateQueueActive(active)

	// Re-advance off this goroutine so a long chain of queued requests
	// does not recurse.
	go q.advance()
}

// expire times out a request. If it is still pending it is removed
// from the queue; if it is running, the outcome is delivered now and
// the eventual task result is discarded.
func (q *Queue) expire(req *request) {
	q.mu.Lock()
	for i, p := range q.pending {
		if p == req {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	depth := len(q.pending)
	q.mu.Unlock()

	metrics.UpdateQueueDepth(depth)
	metrics.RecordTimeout()
	q.finish(req, Outcome{Err: ErrTimeout})
}

// finish delivers the outcome exactly once and stops the timeout timer.
func (q *Queue) finish(req *request, o Outcome) {
	q.mu.Lock()
	if req.done {
		q.mu.Unlock()
		return
	}
	req.done = true
	q.mu.Unlock()

	if req.timer != nil {
		req.timer.Stop()
	}
	req.out <- o
}

// cleanupLoop periodically prunes rate ledgers for idle users.
func (q *Queue) cleanupLoop() {
	ticker := time.NewTicker(q.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			q.pruneLedgers()
		case <-q.cleanupStop:
			return
		}
	}
}

func (q *Queue) pruneLedgers() {
	cutoff := time.Now().Add(-q.rateWindow)
	q.mu.Lock()
	for userID, stamps := range q.ledger {
		kept := stamps[:0]
		for _, t := range stamps {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(q.ledger, userID)
		} else {
			q.ledger[userID] = kept
		}
	}
	tracked := len(q.ledger)
	q.mu.Unlock()
	metrics.UpdateTrackedUsers(tracked)
}
