package corun

import (
	"sync"
	"sync/atomic"
)

// An AsyncPromise is a one-shot rendezvous between a producer, usually
// a callback on a foreign goroutine, and at most one suspended
// consumer coroutine. The producer resolves it once with [SetValue] or
// [SetError]; a coroutine awaits it like any other [Awaiter].
//
// The first publication wins; later SetValue/SetError calls are no-ops.
// The continuation slot is a weak reference: if the consumer's owning
// Task is released before the producer fires, the producer's submitted
// resume observes the destroyed frame and no-ops.
type AsyncPromise[T any] struct {
	mu     sync.Mutex
	ready  atomic.Bool
	value  T
	err    error
	waiter atomic.Pointer[Coroutine]
}

// NewAsyncPromise creates an unresolved promise.
func NewAsyncPromise[T any]() *AsyncPromise[T] {
	return new(AsyncPromise[T])
}

// SetValue publishes v and wakes the captured consumer, if any, on the
// worker pool. The payload is written under the mutex before the ready
// flag is raised; the waiter is taken out of its slot before the mutex
// is released and resumed outside it. A promise that is already
// resolved ignores the call.
func (ap *AsyncPromise[T]) SetValue(v T) {
	ap.mu.Lock()
	if ap.ready.Load() {
		ap.mu.Unlock()
		return
	}
	ap.value = v
	ap.ready.Store(true)
	w := ap.waiter.Swap(nil)
	ap.mu.Unlock()
	wake(w)
}

// SetError publishes err instead of a value. A nil err is recorded as
// [ErrUnknown]. Same ordering discipline as [AsyncPromise.SetValue].
func (ap *AsyncPromise[T]) SetError(err error) {
	if err == nil {
		err = ErrUnknown
	}
	ap.mu.Lock()
	if ap.ready.Load() {
		ap.mu.Unlock()
		return
	}
	ap.err = err
	ap.ready.Store(true)
	w := ap.waiter.Swap(nil)
	ap.mu.Unlock()
	wake(w)
}

// Ready reports whether the promise has been resolved.
func (ap *AsyncPromise[T]) Ready() bool {
	return ap.ready.Load()
}

// Suspend captures co as the consumer to resume on publication.
// The ready flag is re-checked under the mutex: a promise resolved
// before the consumer got here reschedules co on the worker pool
// instead of installing it, which closes the lost-wakeup window.
// A second waiter is likewise rescheduled without installation; at
// most one true suspension happens per promise.
func (ap *AsyncPromise[T]) Suspend(co *Coroutine) bool {
	co.markShared()
	ap.mu.Lock()
	if ap.ready.Load() {
		ap.mu.Unlock()
		mgr().submit(co)
		return true
	}
	if !ap.waiter.CompareAndSwap(nil, co) {
		ap.mu.Unlock()
		logger().Debug("corun: second waiter on async promise, rescheduling without installation")
		mgr().submit(co)
		return true
	}
	ap.mu.Unlock()
	return true
}

// Result reads the published value or error. It is meaningful once the
// awaiter has resumed (or [AsyncPromise.Ready] reports true); on an
// unresolved promise it returns [ErrInvalid].
func (ap *AsyncPromise[T]) Result() (T, error) {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	var zero T
	if !ap.ready.Load() {
		return zero, ErrInvalid
	}
	if ap.err != nil {
		return zero, ap.err
	}
	return ap.value, nil
}
