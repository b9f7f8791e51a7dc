package cache

import (
	"context"
	"fmt"
	"sync"

	"retail-report-api/internal/metrics"
)

// Flight collapses concurrent computations of the same cache key into a
// single execution, with all callers receiving the same result. This
// prevents a stampede where every concurrent miss for a hot key triggers
// its own expensive recomputation.
//
// The registration lock is held only for the register/deregister step,
// never for the duration of the computation, so unrelated keys are never
// serialized against each other.
type Flight struct {
	mu    sync.Mutex
	calls map[string]*flightCall
}

// flightCall is the in-flight registration for one key. The result fields
// are written exactly once, before done is closed.
type flightCall struct {
	done chan struct{}
	val  any
	err  error
}

// NewFlight creates an empty coordinator.
func NewFlight() *Flight {
	return &Flight{calls: make(map[string]*flightCall)}
}

// Do runs fn for key, ensuring at most one execution is in flight per key.
// Concurrent callers for the same key wait for the running execution and
// receive its result or error. The returned bool reports whether the result
// was shared from another caller's execution.
//
// The computation runs detached from the caller's cancellation: if the
// initiating request is abandoned, fn continues to completion so waiters
// (and the cache) still receive the value. fn is expected to bound its own
// run time. A waiter whose context is canceled unblocks with ctx.Err()
// without disturbing anyone else.
//
// The registration is removed on every exit path of fn, so a later miss for
// the same key starts a fresh computation.
func (f *Flight) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, bool, error) {
	f.mu.Lock()
	if c, inFlight := f.calls[key]; inFlight {
		f.mu.Unlock()
		metrics.StampedesSuppressed.Inc()
		select {
		case <-c.done:
			return c.val, true, c.err
		case <-ctx.Done():
			return nil, true, ctx.Err()
		}
	}

	c := &flightCall{done: make(chan struct{})}
	f.calls[key] = c
	f.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.err = fmt.Errorf("flight: panic in computation for %q: %v", key, r)
			}
			f.mu.Lock()
			delete(f.calls, key)
			f.mu.Unlock()
			close(c.done)
		}()
		c.val, c.err = fn(context.WithoutCancel(ctx))
	}()

	select {
	case <-c.done:
		return c.val, false, c.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Forget drops the registration for key, letting the next caller start a
// fresh computation. Callers already waiting still receive the old result.
func (f *Flight) Forget(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.calls, key)
}

// InFlight returns the number of currently running computations.
func (f *Flight) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
