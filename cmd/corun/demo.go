package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"corun"
)

var (
	passMark = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
)

func report(name string, ok bool, detail string) bool {
	mark := passMark("ok")
	if !ok {
		mark = failMark("FAIL")
	}
	fmt.Printf("%-24s %s  %s\n", name, mark, detail)
	return ok
}

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the end-to-end scenarios once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok := true

			// A body that returns without suspending is settled before
			// Go returns.
			imm := corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
				return p.Return(42)
			})
			ok = report("immediate result", corun.Wait(imm) == 42 && imm.IsFulfilled(), "42") && ok

			start := time.Now()
			timed := corun.Go(func(co *corun.Coroutine, p *corun.Promise[string]) corun.Result {
				return co.Await(corun.Sleep(10 * time.Millisecond)).Then(func(co *corun.Coroutine) corun.Result {
					return p.Return("ok")
				})
			})
			v := corun.Wait(timed)
			ok = report("timer-joined result", v == "ok" && time.Since(start) >= 10*time.Millisecond,
				fmt.Sprintf("%q after %v", v, time.Since(start).Round(time.Millisecond))) && ok

			ap := corun.NewAsyncPromise[int]()
			bridged := corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
				return co.Await(ap).Then(func(co *corun.Coroutine) corun.Result {
					n, err := ap.Result()
					if err != nil {
						return p.Reject(err)
					}
					return p.Return(n)
				})
			})
			go func() {
				time.Sleep(5 * time.Millisecond)
				ap.SetValue(7)
			}()
			ok = report("callback bridge", corun.Wait(bridged) == 7, "7 from a foreign goroutine") && ok

			canceled := corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
				return co.Await(corun.Sleep(20 * time.Millisecond)).Then(func(co *corun.Coroutine) corun.Result {
					return p.Return(1)
				})
			})
			canceled.Cancel()
			_, err := corun.WaitResult(canceled)
			ok = report("cancel before resume", canceled.IsRejected(), fmt.Sprint(err)) && ok

			mk := func(n int, d time.Duration) *corun.Task[int] {
				return corun.Go(func(co *corun.Coroutine, p *corun.Promise[int]) corun.Result {
					return co.Await(corun.Sleep(d)).Then(func(co *corun.Coroutine) corun.Result {
						return p.Return(n)
					})
				})
			}
			all := corun.WhenAll(mk(1, time.Millisecond), mk(2, 2*time.Millisecond), mk(3, 3*time.Millisecond))
			got := corun.Wait(all)
			ok = report("when-all fan-in", len(got) == 3 && got[0] == 1 && got[1] == 2 && got[2] == 3,
				fmt.Sprint(got)) && ok

			if !ok {
				return fmt.Errorf("demo: some scenarios failed")
			}
			return nil
		},
	}
}
