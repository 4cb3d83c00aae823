package corun_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"corun"
)

func sleepyTask(n int, d time.Duration) *corun.Task[int] {
	return corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
		return co.Await(corun.Sleep(d)).Then(func(co *corun.Coroutine) corun.Result {
			return p.Return(n)
		})
	})
}

func TestWhenAll(t *testing.T) {
	corun.EnableRuntime()

	all := corun.WhenAll(
		sleepyTask(1, time.Millisecond),
		sleepyTask(2, 2*time.Millisecond),
		sleepyTask(3, 3*time.Millisecond),
	)
	require.Equal(t, []int{1, 2, 3}, corun.Wait(all))
}

func TestWhenAllOne(t *testing.T) {
	corun.EnableRuntime()

	all := corun.WhenAll(sleepyTask(9, time.Millisecond))
	require.Equal(t, []int{9}, corun.Wait(all))
}

func TestWhenAllNone(t *testing.T) {
	all := corun.WhenAll[int]()
	require.True(t, all.IsSettled())
	require.Empty(t, corun.Wait(all))
}

func TestWhenAllSettledChildren(t *testing.T) {
	// All children settled: the combiner joins inline and settles
	// without suspending once.
	t1 := corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
		return p.Return(1)
	})
	t2 := corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
		return p.Return(2)
	})
	all := corun.WhenAll(t1, t2)
	require.True(t, all.IsSettled())
	require.Equal(t, []int{1, 2}, corun.Wait(all))
}

func TestWhenAll2(t *testing.T) {
	corun.EnableRuntime()

	ta := sleepyTask(5, time.Millisecond)
	tb := corun.Go(func(co *corun.Coroutine, p *corun.Promise[string]) corun.Result {
		return co.Await(corun.Sleep(2 * time.Millisecond)).Then(func(co *corun.Coroutine) corun.Result {
			return p.Return("five")
		})
	})

	pair := corun.Wait(corun.WhenAll2(ta, tb))
	require.Equal(t, 5, pair.First)
	require.Equal(t, "five", pair.Second)
}

func TestWhenAll3(t *testing.T) {
	corun.EnableRuntime()

	ta := sleepyTask(1, time.Millisecond)
	tb := corun.Go(func(co *corun.Coroutine, p *corun.Promise[string]) corun.Result {
		return p.Return("two")
	})
	tc := corun.Go(func(co *corun.Coroutine, p *corun.Promise[bool]) corun.Result {
		return co.Await(corun.Sleep(3 * time.Millisecond)).Then(func(co *corun.Coroutine) corun.Result {
			return p.Return(true)
		})
	})

	triple := corun.Wait(corun.WhenAll3(ta, tb, tc))
	require.Equal(t, 1, triple.First)
	require.Equal(t, "two", triple.Second)
	require.True(t, triple.Third)
}

func TestCancelAfter(t *testing.T) {
	corun.EnableRuntime()

	// Cancellation is observed when the target next reaches a resume:
	// the flag is set at 5ms, and the 30ms timer fire is where the
	// short-circuit happens.
	slow := sleepyTask(1, 30*time.Millisecond)
	corun.CancelAfter(slow, 5*time.Millisecond)

	_, err := corun.WaitResult(slow)
	require.ErrorIs(t, err, corun.ErrCanceled)
}

func TestCancelAfterSettledIsNoop(t *testing.T) {
	corun.EnableRuntime()

	fast := sleepyTask(2, time.Millisecond)
	corun.CancelAfter(fast, time.Hour)

	require.Equal(t, 2, corun.Wait(fast))
	require.True(t, fast.IsFulfilled())
}
