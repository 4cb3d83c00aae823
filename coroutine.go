package corun

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type action int

const (
	_ action = iota
	doYield
	doTransition
	doEnd
)

const (
	flagDone = 1 << iota
	flagDestroyed
	flagShared
	flagRecycled
)

// A Coroutine is the frame of a suspendable computation: the heap-resident
// carrier of the current step function and the lifecycle flags.
// It is the continuation of the computation; its only operations, from
// the outside, are resume and destroy, and both are performed by the
// runtime, never by application code.
//
// A coroutine is driven by a step function called [Op].
// Running a coroutine calls the current step with the coroutine as the
// argument. The returned [Result] determines whether the coroutine
// suspends, makes a transition to another step, or ends.
//
// A suspended coroutine resumes when the awaiter it suspended on fires:
// a timer deadline passes, an awaited [Task] settles, or an
// [AsyncPromise] is resolved. Resumption may happen on the runtime's
// drive goroutine or on a worker-pool goroutine; a frame is resumed
// from at most one source at a time.
type Coroutine struct {
	flag atomic.Uint32
	op   Op
	pr   settler
}

// settler is the untyped view of the promise embedded in a frame.
// The run loop uses it to observe cancellation and to settle the result
// slot on abnormal completion without knowing the result type.
type settler interface {
	canceled() bool
	fail(err error)
	finalize()
	destroy()
	isSettled() bool
}

var coroutinePool sync.Pool

func newCoroutine() *Coroutine {
	if co, ok := coroutinePool.Get().(*Coroutine); ok {
		return co
	}
	return new(Coroutine)
}

// freeCoroutine recycles a settled frame when its owning Task lets go.
// Frames that were ever handed to an external waiter slot, and frames
// torn down through the destroy mailbox, are left to the garbage
// collector instead.
func freeCoroutine(co *Coroutine) {
	flag := co.flag.Load()
	if flag&flagDone == 0 || flag&(flagShared|flagDestroyed) != 0 {
		return
	}
	co.flag.Store(flagRecycled)
	co.op = nil
	co.pr = nil
	coroutinePool.Put(co)
}

func (co *Coroutine) init(op Op, pr settler) *Coroutine {
	co.flag.Store(0)
	co.op = op
	co.pr = pr
	return co
}

func (co *Coroutine) done() bool {
	return co.flag.Load()&(flagDone|flagDestroyed) != 0
}

func (co *Coroutine) setFlag(bits uint32) {
	for {
		old := co.flag.Load()
		if co.flag.CompareAndSwap(old, old|bits) {
			return
		}
	}
}

// markShared records that the frame has been handed to an external
// waiter slot or timer entry. Shared frames are never recycled.
func (co *Coroutine) markShared() {
	co.setFlag(flagShared)
}

// resume runs a dequeued continuation after the safety checks: a nil
// frame, an ended frame and a destroyed frame are all skipped, because
// a continuation may be canceled or released between scheduling and
// execution.
func resume(co *Coroutine) {
	if co == nil {
		logger().Debug("corun: skipping nil continuation")
		return
	}
	flag := co.flag.Load()
	if flag&flagRecycled != 0 {
		panic("corun: coroutine has been recycled")
	}
	if flag&(flagDone|flagDestroyed) != 0 {
		logger().Debug("corun: skipping stale continuation")
		return
	}
	co.run()
}

func (co *Coroutine) run() {
	for {
		if co.done() {
			return
		}

		res := co.step()

		switch res.action {
		case doEnd:
			co.finish()
			return
		case doTransition:
			co.op = res.op
		case doYield:
			// A suspend point is the only place cancellation is
			// observed. Transition hops are not checkpoints: a body
			// that never yields runs to completion even if a cancel
			// races in between its steps.
			if co.pr.canceled() && !co.pr.isSettled() {
				co.pr.fail(ErrCanceled)
				co.finish()
				return
			}
			aw := res.aw
			// Install the continuation step before suspending, so that
			// a producer racing on another thread can resume the frame
			// the instant the awaiter captures it.
			co.op = res.op
			if aw.Ready() {
				continue
			}
			if aw.Suspend(co) {
				// Suspended. The frame now belongs to whichever source
				// resumes it; nothing below this point may touch co.
				return
			}
		default:
			panic("corun: internal error: unknown action")
		}
	}
}

// step runs the current step with panic containment. A fault is captured
// into the result slot and ends the frame; it never crosses a suspension
// boundary.
func (co *Coroutine) step() (res Result) {
	defer func() {
		if v := recover(); v != nil {
			logger().Error("corun: unhandled panic in task body", "panic", v)
			co.pr.fail(fmt.Errorf("%w: %v", ErrUnknown, v))
			res = Result{action: doEnd}
		}
	}()
	return co.op(co)
}

// finish marks the frame complete and settles an unwritten result slot.
// The done flag is raised before finalize publishes an unwritten slot.
// A slot written by Return or Reject has already been published, so a
// waiter can observe that settle event before the done flag is raised.
func (co *Coroutine) finish() {
	pr := co.pr
	co.op = nil
	co.setFlag(flagDone)
	pr.finalize()
}

// reap tears down a frame whose owning Task has been released while
// the computation was still in flight. Called by the manager's drive
// tick, never from inside the frame's own execution. The frame may
// still be running a step on a worker at this instant, so reap only
// touches the atomic flag and the promise: the run loop observes the
// flag at its next iteration and stops, and stale resumptions become
// checked no-ops.
func (co *Coroutine) reap() {
	co.setFlag(flagDestroyed)
	co.pr.destroy()
}

// An Awaiter is a suspend point. Ready reports whether the awaited
// outcome is already available, in which case the coroutine continues
// inline without suspending. Suspend registers the coroutine for later
// resumption and reports true; an Awaiter that finds itself already
// fired during Suspend may reschedule the coroutine immediately and
// still report true.
//
// [Task], [AsyncPromise] and [Sleep] are the Awaiters provided by this
// package.
type Awaiter interface {
	Ready() bool
	Suspend(co *Coroutine) bool
}

// An Op is one step of a coroutine's computation. The returned [Result]
// determines what the coroutine does next.
//
// The argument co must not be retained: a frame may be recycled once it
// has ended and its owning Task is released.
type Op func(co *Coroutine) Result

// Result is the type of the return value of an [Op].
//
// A Result is created by calling one of [Coroutine.Await] (followed by
// one of the [PendingResult] methods), [Coroutine.Transition],
// [Coroutine.End], [Promise.Return] or [Promise.Reject].
type Result struct {
	action action
	op     Op
	aw     Awaiter
}

// PendingResult is the return type of [Coroutine.Await]. It must be
// transformed into a [Result] with one of its methods before returning
// from an [Op].
type PendingResult struct {
	res Result
}

// Then returns a [Result] that suspends the coroutine on the awaiter
// and, when resumed, makes a transition to op.
func (pr PendingResult) Then(op Op) Result {
	pr.res.op = mustOp(op)
	return pr.res
}

// End returns a [Result] that suspends the coroutine on the awaiter
// and, when resumed, ends it.
func (pr PendingResult) End() Result {
	return pr.Then(func(co *Coroutine) Result { return co.End() })
}

// Await returns a [PendingResult] that will suspend co on aw.
// If aw is already ready, co does not suspend and continues inline
// with the step given to [PendingResult.Then].
//
// Await is where cancellation is observed: a coroutine whose Task has
// been canceled short-circuits at its next suspend point and settles
// with [ErrCanceled].
func (co *Coroutine) Await(aw Awaiter) PendingResult {
	if aw == nil {
		panic("corun: Await called with nil Awaiter")
	}
	return PendingResult{res: Result{action: doYield, aw: aw}}
}

// Transition returns a [Result] that makes co continue inline with op.
func (co *Coroutine) Transition(op Op) Result {
	return Result{action: doTransition, op: mustOp(op)}
}

// End returns a [Result] that ends co. If the result slot has not been
// written, the task settles with the zero value, or with [ErrCanceled]
// when cancellation was requested.
func (co *Coroutine) End() Result {
	return Result{action: doEnd}
}

func mustOp(op Op) Op {
	if op == nil {
		panic("corun: nil Op")
	}
	return op
}
