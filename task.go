package corun

import (
	"sync"
	"sync/atomic"
	"time"
)

type slotState int

const (
	slotEmpty slotState = iota
	slotValue
	slotError
)

// Void is the result type of tasks that complete without producing
// a value.
type Void = struct{}

// A Promise is the per-Task state carrier embedded in the frame: the
// result slot, the cancellation flag and the destruction guard.
// The body of a task receives its Promise and settles it with
// [Promise.Return] or [Promise.Reject].
//
// The result slot transitions empty to value, or empty to error,
// exactly once per lifetime. Once the owning Task has been released,
// further writes are not observable.
type Promise[T any] struct {
	mu      sync.Mutex
	state   slotState
	value   T
	err     error
	settled chan struct{} // closed exactly once at publication
	closed  bool          // guards the close; under mu

	ready     atomic.Bool // result slot populated, or frame reaped
	cancelled atomic.Bool
	dropped   atomic.Bool // destruction pending

	waiters []*Coroutine // captured continuations; under mu
	born    time.Time
}

func newPromise[T any]() *Promise[T] {
	return &Promise[T]{
		settled: make(chan struct{}),
		born:    time.Now(),
	}
}

// Return writes v into the result slot and ends the coroutine.
// If the task has been canceled before the result was written, the
// write is gated and the task settles with [ErrCanceled] instead.
func (p *Promise[T]) Return(v T) Result {
	p.completeValue(v)
	return Result{action: doEnd}
}

// Reject writes err into the result slot and ends the coroutine.
// A nil err is recorded as [ErrUnknown].
func (p *Promise[T]) Reject(err error) Result {
	if err == nil {
		err = ErrUnknown
	}
	p.completeError(err)
	return Result{action: doEnd}
}

// Canceled reports whether cancellation has been requested for the
// owning Task. Bodies doing long non-suspending work may poll it.
func (p *Promise[T]) Canceled() bool {
	return p.cancelled.Load()
}

func (p *Promise[T]) completeValue(v T) {
	p.mu.Lock()
	if p.state != slotEmpty || p.dropped.Load() {
		p.mu.Unlock()
		return
	}
	if p.cancelled.Load() {
		p.state = slotError
		p.err = ErrCanceled
	} else {
		p.state = slotValue
		p.value = v
	}
	ws := p.publishLocked()
	p.mu.Unlock()
	wakeAll(ws)
}

func (p *Promise[T]) completeError(err error) {
	p.mu.Lock()
	if p.state != slotEmpty || p.dropped.Load() {
		p.mu.Unlock()
		return
	}
	p.state = slotError
	p.err = err
	ws := p.publishLocked()
	p.mu.Unlock()
	wakeAll(ws)
}

// publishLocked closes the settle channel once and takes the captured
// waiters out of their slots. The caller resumes them outside the
// mutex; no lock is held across a resumption.
func (p *Promise[T]) publishLocked() []*Coroutine {
	p.ready.Store(true)
	if !p.closed {
		p.closed = true
		close(p.settled)
	}
	ws := p.waiters
	p.waiters = nil
	return ws
}

// wake hands a captured waiter to the worker pool.
func wake(w *Coroutine) {
	if w != nil {
		mgr().submit(w)
	}
}

func wakeAll(ws []*Coroutine) {
	for _, w := range ws {
		wake(w)
	}
}

// settler implementation; the untyped view used by the run loop.

func (p *Promise[T]) canceled() bool { return p.cancelled.Load() }

func (p *Promise[T]) fail(err error) { p.completeError(err) }

func (p *Promise[T]) isSettled() bool { return p.ready.Load() }

// finalize settles a frame that ended without writing its result slot:
// the task fulfills with the zero value, or with [ErrCanceled] when
// cancellation was requested first. It also releases any waiter still
// captured at the time the slot was written.
func (p *Promise[T]) finalize() {
	p.mu.Lock()
	if p.state == slotEmpty && !p.dropped.Load() {
		if p.cancelled.Load() {
			p.state = slotError
			p.err = ErrCanceled
		} else {
			p.state = slotValue
		}
	}
	var ws []*Coroutine
	if p.state != slotEmpty {
		ws = p.publishLocked()
	}
	p.mu.Unlock()
	wakeAll(ws)
}

// destroy is the reap half of the destruction protocol: it publishes
// the settle event for a frame that will never produce a result, so
// blocked readers observe [ErrDestroyed] and captured waiters are woken
// rather than hanging.
func (p *Promise[T]) destroy() {
	p.mu.Lock()
	ws := p.publishLocked()
	p.mu.Unlock()
	wakeAll(ws)
}

// A Task is the owning handle to a suspendable computation producing
// a value of type T.
//
// A Task exclusively owns its frame. It must not be copied; passing
// the pointer around transfers nothing, and ownership ends with
// [Task.Release].
type Task[T any] struct {
	co       *Coroutine
	p        *Promise[T]
	released atomic.Bool
}

// Go creates a Task and starts it eagerly: the body runs inline on the
// calling goroutine until its first suspension point before Go returns.
// A body that never suspends is already settled when Go returns.
//
// The body settles the task with [Promise.Return] or [Promise.Reject];
// ending it any other way fulfills the task with the zero value, or
// rejects it with [ErrCanceled] when cancellation was requested.
func Go[T any](body func(co *Coroutine, p *Promise[T]) Result) *Task[T] {
	if body == nil {
		panic("corun: Go called with nil body")
	}
	p := newPromise[T]()
	co := newCoroutine().init(func(co *Coroutine) Result { return body(co, p) }, p)
	t := &Task[T]{co: co, p: p}
	co.run()
	return t
}

// Get blocks until the task settles and returns its value.
// On error or on a released handle it logs and returns the zero value;
// use [Task.Result] to observe the error instead.
//
// The runtime drive thread must be running for a suspended task to make
// progress; Get never drives the runtime itself.
func (t *Task[T]) Get() T {
	v, err := t.Result()
	if err != nil {
		logger().Error("corun: task failed", "err", err, "age", time.Since(t.p.born))
	}
	return v
}

// Result blocks until the task settles and returns its value or error.
// This is the error-carrying readout: cancellation surfaces as
// [ErrCanceled], a released-in-flight frame as [ErrDestroyed], a
// recovered body panic as [ErrUnknown], and a released or nil handle
// as [ErrInvalid].
func (t *Task[T]) Result() (T, error) {
	var zero T
	if t == nil || t.co == nil || t.released.Load() {
		return zero, ErrInvalid
	}
	p := t.p
	<-p.settled
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case slotValue:
		return p.value, nil
	case slotError:
		return zero, p.err
	default:
		return zero, ErrDestroyed
	}
}

// Cancel requests cooperative cancellation. The flag is monotonic and
// idempotent; it is observed at the task's suspend points and gates the
// writing of its result. Cancel on a settled task is a no-op. A task
// that never reaches a suspend point runs to completion regardless.
func (t *Task[T]) Cancel() {
	t.p.cancelled.Store(true)
}

// IsPending reports whether the task has neither settled nor been torn
// down; it is always the opposite of [Task.IsSettled].
func (t *Task[T]) IsPending() bool {
	return !t.p.ready.Load()
}

// IsSettled reports whether the task has produced a value or an error,
// or has been torn down. Once observed true it remains true.
func (t *Task[T]) IsSettled() bool {
	return t.p.ready.Load()
}

// IsFulfilled reports whether the task settled with a value.
func (t *Task[T]) IsFulfilled() bool {
	p := t.p
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == slotValue
}

// IsRejected reports whether the task settled with an error, or was
// torn down before producing one.
func (t *Task[T]) IsRejected() bool {
	p := t.p
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == slotError || (p.closed && p.state == slotEmpty)
}

// Release gives up ownership of the frame. A settled frame is detached
// synchronously; a frame still in flight is marked destruction-pending
// and handed to the manager's destroy mailbox, where the next drive
// tick reaps it. Frames are never destroyed from inside their own
// execution. Release is idempotent, and reading from a released handle
// yields [ErrInvalid].
func (t *Task[T]) Release() {
	if t == nil || t.co == nil || t.released.Swap(true) {
		return
	}
	if t.p.ready.Load() && t.co.flag.Load()&flagDone != 0 {
		freeCoroutine(t.co)
		return
	}
	t.p.dropped.Store(true)
	mgr().Reap(t.co)
}

// Awaiter surface: a Task may be awaited inside another computation.

// Ready reports whether awaiting t would not suspend: the task has
// settled, been torn down, or the handle is nil.
func (t *Task[T]) Ready() bool {
	return t == nil || t.co == nil || t.p.ready.Load()
}

// Suspend captures co as a waiter to resume when t settles. Settling
// wakes every captured waiter on the worker pool; a waiter arriving
// after settlement is rescheduled immediately without installation.
// Unlike an [AsyncPromise], a Task accepts any number of waiters, so
// fan-in joins on one task are first-class.
func (t *Task[T]) Suspend(co *Coroutine) bool {
	p := t.p
	co.markShared()
	p.mu.Lock()
	if p.ready.Load() {
		p.mu.Unlock()
		mgr().submit(co)
		return true
	}
	p.waiters = append(p.waiters, co)
	p.mu.Unlock()
	return true
}
