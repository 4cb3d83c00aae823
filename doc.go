// Package corun is a user-space coroutine runtime: a library for
// expressing asynchronous work as suspendable computations that are
// scheduled, resumed, timed and canceled correctly under concurrent
// load.
//
// Since Go already has cheap goroutines, what this package provides is
// not parallelism but lifecycle: a [Task] is an owning handle to one
// computation with a typed result slot, an advisory cancellation flag,
// and a destruction protocol that makes it safe to walk away from an
// in-flight computation without racing its frame.
//
// # Tasks and Steps
//
// Go has no stackless compiler coroutines, so a computation is written
// as step functions. [Go] spawns a [Coroutine] to run the first step
// eagerly, on the calling goroutine, until the step either ends the
// task or suspends it on an [Awaiter]:
//
//	t := corun.Go(func(co *corun.Coroutine, p *corun.Promise[string]) corun.Result {
//		return co.Await(corun.Sleep(10*time.Millisecond)).Then(func(co *corun.Coroutine) corun.Result {
//			return p.Return("ok")
//		})
//	})
//	fmt.Println(corun.Wait(t))
//
// The three suspend points are awaiting a [Task] that has not settled,
// awaiting an [AsyncPromise] that has not been resolved, and awaiting
// [Sleep] with a positive duration. Everything else runs straight
// through.
//
// # The Manager and the Worker Pool
//
// A process-wide [Manager] actor drives the runtime. Its drive
// goroutine, started by [EnableRuntime], ticks every 100µs (see
// [Config]): it forwards offloaded continuations to the worker [Pool],
// fires expired timers, resumes ready continuations inline, and reaps
// released frames, strictly in that order. External producers resolve
// an [AsyncPromise] from any goroutine; the captured consumer resumes
// on the worker pool. There is no work stealing, no preemption and no
// priority; the scheduler is deliberately small.
//
// # Cancellation and Destruction
//
// Cancellation is data, not control flow: [Task.Cancel] sets a
// monotonic flag that suspend points observe, short-circuiting the
// computation into [ErrCanceled]. Nothing is interrupted; a body that
// never suspends runs to completion and only the writing of its result
// is gated.
//
// Releasing a Task whose computation is still in flight hands the
// frame to the manager's destroy mailbox; the next drive tick tears it
// down, and any continuation still pointing at the frame becomes a
// checked no-op. Frames are never destroyed from inside their own
// execution.
//
// # Faults
//
// A panic in a task body is recovered once, logged, and captured into
// the result slot as [ErrUnknown]; it never unwinds across a
// suspension boundary. At the sync boundary, [Task.Get] and [Wait]
// degrade errors to the zero value with a logged message, while
// [Task.Result] and [WaitResult] return them.
package corun
