package corun

import "time"

// WhenAll returns a Task that gathers the results of the given tasks
// into a slice, in argument order. The children are already running
// when WhenAll is called (tasks start eagerly), so the combiner merely
// joins them in index order; it settles when the last child settles.
// It reports no aggregate error: a child that failed contributes the
// zero value here and surfaces its own error through its own handle.
func WhenAll[T any](tasks ...*Task[T]) *Task[[]T] {
	return Go(func(co *Coroutine, p *Promise[[]T]) Result {
		out := make([]T, 0, len(tasks))
		var join Op
		join = func(co *Coroutine) Result {
			for len(out) < len(tasks) {
				t := tasks[len(out)]
				if !t.Ready() {
					return co.Await(t).Then(join)
				}
				v, _ := t.Result()
				out = append(out, v)
			}
			return p.Return(out)
		}
		return co.Transition(join)
	})
}

// Pair is the result of [WhenAll2].
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the result of [WhenAll3].
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// WhenAll2 joins two tasks of different result types into a [Pair].
// Same joining discipline as [WhenAll].
func WhenAll2[A, B any](ta *Task[A], tb *Task[B]) *Task[Pair[A, B]] {
	return Go(func(co *Coroutine, p *Promise[Pair[A, B]]) Result {
		finish := func(co *Coroutine) Result {
			var out Pair[A, B]
			out.First, _ = ta.Result()
			out.Second, _ = tb.Result()
			return p.Return(out)
		}
		awaitSecond := func(co *Coroutine) Result {
			return co.Await(tb).Then(finish)
		}
		return co.Await(ta).Then(awaitSecond)
	})
}

// WhenAll3 joins three tasks of different result types into a [Triple].
// Same joining discipline as [WhenAll].
func WhenAll3[A, B, C any](ta *Task[A], tb *Task[B], tc *Task[C]) *Task[Triple[A, B, C]] {
	return Go(func(co *Coroutine, p *Promise[Triple[A, B, C]]) Result {
		finish := func(co *Coroutine) Result {
			var out Triple[A, B, C]
			out.First, _ = ta.Result()
			out.Second, _ = tb.Result()
			out.Third, _ = tc.Result()
			return p.Return(out)
		}
		awaitThird := func(co *Coroutine) Result {
			return co.Await(tc).Then(finish)
		}
		awaitSecond := func(co *Coroutine) Result {
			return co.Await(tb).Then(awaitThird)
		}
		return co.Await(ta).Then(awaitSecond)
	})
}

// CancelAfter arms a best-effort timeout: a detached background task
// sleeps d on the timer wheel and then requests cancellation of t.
// A task that settled first observes a no-op cancel.
func CancelAfter[T any](t *Task[T], d time.Duration) {
	Go(func(co *Coroutine, p *Promise[Void]) Result {
		return co.Await(Sleep(d)).Then(func(co *Coroutine) Result {
			t.Cancel()
			return co.End()
		})
	})
}
