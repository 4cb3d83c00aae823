package corun_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"corun"
)

func TestBugs(t *testing.T) {
	t.Run("ReleaseRacesSettle", func(t *testing.T) {
		// Releasing a handle while the computation settles on a worker
		// must neither deadlock a reader nor resurrect the frame.
		corun.EnableRuntime()

		for range 500 {
			ap := corun.NewAsyncPromise[int]()
			task := corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
				return co.Await(ap).Then(func(co *corun.Coroutine) corun.Result {
					v, _ := ap.Result()
					return p.Return(v)
				})
			})

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				ap.SetValue(1)
			}()
			go func() {
				defer wg.Done()
				task.Release()
			}()
			wg.Wait()
		}
	})

	t.Run("CancelRacesSettle", func(t *testing.T) {
		// Whatever wins, the task settles exactly one way and a reader
		// observes a consistent snapshot.
		corun.EnableRuntime()

		for range 500 {
			ap := corun.NewAsyncPromise[int]()
			task := corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
				return co.Await(ap).Then(func(co *corun.Coroutine) corun.Result {
					v, err := ap.Result()
					if err != nil {
						return p.Reject(err)
					}
					return p.Return(v)
				})
			})

			go ap.SetValue(2)
			go task.Cancel()

			v, err := corun.WaitResult(task)
			if err != nil {
				require.ErrorIs(t, err, corun.ErrCanceled)
			} else {
				require.Equal(t, 2, v)
			}
			require.True(t, task.IsSettled())
			require.NotEqual(t, task.IsFulfilled(), task.IsRejected())
		}
	})

	t.Run("ConcurrentWaiters", func(t *testing.T) {
		// A task accepts any number of waiters: all eight are captured
		// in its waiter list, and settling wakes every one of them on
		// the pool. All of them must come back with the value.
		corun.EnableRuntime()

		ap := corun.NewAsyncPromise[int]()
		source := corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
			return co.Await(ap).Then(func(co *corun.Coroutine) corun.Result {
				v, _ := ap.Result()
				return p.Return(v)
			})
		})

		var waiters []*corun.Task[int]
		for range 8 {
			waiters = append(waiters, corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
				return co.Await(source).Then(func(co *corun.Coroutine) corun.Result {
					v, err := source.Result()
					if err != nil {
						return p.Reject(err)
					}
					return p.Return(v)
				})
			}))
		}

		time.Sleep(2 * time.Millisecond)
		ap.SetValue(13)

		for _, w := range waiters {
			require.Equal(t, 13, corun.Wait(w))
		}
	})

	t.Run("DoubleReleasePending", func(t *testing.T) {
		corun.EnableRuntime()

		task := corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
			return co.Await(corun.Sleep(time.Hour)).Then(func(co *corun.Coroutine) corun.Result {
				return p.Return(1)
			})
		})
		task.Release()
		task.Release()

		_, err := task.Result()
		require.ErrorIs(t, err, corun.ErrInvalid)
	})
}
