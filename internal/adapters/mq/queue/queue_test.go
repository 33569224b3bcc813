package queue

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"cardbot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestQueue_SerialFIFOOrder(t *testing.T) {
	q := New(WithConcurrency(1), WithMaxPending(10))
	defer q.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var order []int
	var outs []<-chan Outcome

	for i := 0; i < 5; i++ {
		i := i
		out, err := q.Enqueue(ctx, "user1", func(context.Context) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		outs = append(outs, out)
	}

	for i, out := range outs {
		o := <-out
		if o.Err != nil {
			t.Fatalf("request %d: %v", i, o.Err)
		}
		if o.Value != i {
			t.Errorf("request %d: got value %v", i, o.Value)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Errorf("execution order[%d] = %d, want %d", i, got, i)
		}
	}
}

func TestQueue_RateLimit(t *testing.T) {
	q := New(WithRateLimit(5, time.Minute))
	defer q.Close()
	ctx := context.Background()

	noop := func(context.Context) (any, error) { return nil, nil }

	var outs []<-chan Outcome
	for i := 0; i < 5; i++ {
		out, err := q.Enqueue(ctx, "user1", noop)
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		outs = append(outs, out)
	}

	// Sixth request from the same user must be rejected.
	_, err := q.Enqueue(ctx, "user1", noop)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	var rle *RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatal("expected *RateLimitedError")
	}
	if rle.RetryAfter <= 0 || rle.RetryAfter > time.Minute {
		t.Errorf("retry-after out of range: %v", rle.RetryAfter)
	}

	// A different user is unaffected.
	if _, err := q.Enqueue(ctx, "user2", noop); err != nil {
		t.Fatalf("other user rejected: %v", err)
	}

	for _, out := range outs {
		<-out
	}
}

func TestQueue_RateWindowExpiry(t *testing.T) {
	q := New(WithRateLimit(2, 50*time.Millisecond))
	defer q.Close()
	ctx := context.Background()

	noop := func(context.Context) (any, error) { return nil, nil }

	for i := 0; i < 2; i++ {
		out, err := q.Enqueue(ctx, "user1", noop)
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		<-out
	}
	if _, err := q.Enqueue(ctx, "user1", noop); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	out, err := q.Enqueue(ctx, "user1", noop)
	if err != nil {
		t.Fatalf("expected admission after window expiry, got %v", err)
	}
	<-out
}

func TestQueue_BusyWhenPendingFull(t *testing.T) {
	q := New(WithConcurrency(1), WithMaxPending(1), WithRateLimit(100, time.Minute))
	defer q.Close()
	ctx := context.Background()

	block := make(chan struct{})
	running := make(chan struct{})

	first, err := q.Enqueue(ctx, "user1", func(context.Context) (any, error) {
		close(running)
		<-block
		return nil, nil
	})
	if err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	<-running

	// Occupies the single pending slot.
	second, err := q.Enqueue(ctx, "user2", func(context.Context) (any, error) { return nil, nil })
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}

	if _, err := q.Enqueue(ctx, "user3", func(context.Context) (any, error) { return nil, nil }); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(block)
	<-first
	<-second
}

func TestQueue_RateLimitWinsOverBusy(t *testing.T) {
	q := New(WithConcurrency(1), WithMaxPending(1), WithRateLimit(1, time.Minute))
	defer q.Close()
	ctx := context.Background()

	block := make(chan struct{})
	running := make(chan struct{})

	first, err := q.Enqueue(ctx, "user1", func(context.Context) (any, error) {
		close(running)
		<-block
		return nil, nil
	})
	if err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	<-running

	// Occupies the single pending slot.
	second, err := q.Enqueue(ctx, "user2", func(context.Context) (any, error) { return nil, nil })
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}

	// user1 is out of rate budget and the queue is full; the more
	// specific rejection must win.
	if _, err := q.Enqueue(ctx, "user1", func(context.Context) (any, error) { return nil, nil }); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}

	// A fresh user against the same full queue still gets busy.
	if _, err := q.Enqueue(ctx, "user3", func(context.Context) (any, error) { return nil, nil }); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(block)
	<-first
	<-second
}

func TestQueue_Timeout(t *testing.T) {
	q := New(WithRequestTimeout(30 * time.Millisecond))
	defer q.Close()
	ctx := context.Background()

	out, err := q.Enqueue(ctx, "user1", func(context.Context) (any, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case o := <-out:
		if !errors.Is(o.Err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", o.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("no outcome delivered")
	}
}

func TestQueue_TimeoutCoversQueueWait(t *testing.T) {
	q := New(WithConcurrency(1), WithRequestTimeout(30*time.Millisecond))
	defer q.Close()
	ctx := context.Background()

	block := make(chan struct{})
	defer close(block)
	running := make(chan struct{})

	if _, err := q.Enqueue(ctx, "user1", func(context.Context) (any, error) {
		close(running)
		<-block
		return nil, nil
	}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	<-running

	// This one never gets a worker; the deadline must still fire.
	out, err := q.Enqueue(ctx, "user2", func(context.Context) (any, error) { return "ran", nil })
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}

	select {
	case o := <-out:
		if !errors.Is(o.Err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", o.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("no outcome delivered")
	}
}

func TestQueue_Status(t *testing.T) {
	q := New(WithConcurrency(1), WithMaxPending(10))
	defer q.Close()
	ctx := context.Background()

	block := make(chan struct{})
	running := make(chan struct{})

	first, err := q.Enqueue(ctx, "user1", func(context.Context) (any, error) {
		close(running)
		<-block
		return nil, nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-running

	second, err := q.Enqueue(ctx, "user2", func(context.Context) (any, error) { return nil, nil })
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	st := q.Status()
	if st.Active != 1 {
		t.Errorf("active = %d, want 1", st.Active)
	}
	if st.Queued != 1 {
		t.Errorf("queued = %d, want 1", st.Queued)
	}
	if st.ConcurrencyLimit != 1 {
		t.Errorf("concurrency_limit = %d, want 1", st.ConcurrencyLimit)
	}
	if st.TrackedUsers != 2 {
		t.Errorf("tracked_users = %d, want 2", st.TrackedUsers)
	}

	close(block)
	<-first
	<-second
}

func TestQueue_ClosedRejectsEnqueue(t *testing.T) {
	q := New()
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err := q.Enqueue(context.Background(), "user1", func(context.Context) (any, error) { return nil, nil })
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestQueue_DoReturnsTaskError(t *testing.T) {
	q := New()
	defer q.Close()

	wantErr := errors.New("boom")
	_, err := q.Do(context.Background(), "user1", func(context.Context) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected task error, got %v", err)
	}
}
