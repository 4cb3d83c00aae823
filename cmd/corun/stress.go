package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"corun"
)

func newStressCommand() *cobra.Command {
	var iterations int
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Race producers against consumers on async promises",
		Long: `Resolves one async promise per iteration from a foreign goroutine while
a coroutine races to suspend on it. The producer sometimes fires before
the consumer suspends and sometimes after; every iteration must resolve.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			for i := 0; i < iterations; i++ {
				ap := corun.NewAsyncPromise[string]()
				want := fmt.Sprintf("payload-%d", i)

				go func() {
					if rand.Intn(2) == 0 {
						time.Sleep(time.Duration(rand.Intn(50)) * time.Microsecond)
					}
					ap.SetValue(want)
				}()

				t := corun.Go(func(co *corun.Coroutine, p *corun.Promise[string]) corun.Result {
					return co.Await(ap).Then(func(co *corun.Coroutine) corun.Result {
						s, err := ap.Result()
						if err != nil {
							return p.Reject(err)
						}
						return p.Return(s)
					})
				})

				if got := corun.Wait(t); got != want {
					return fmt.Errorf("stress: iteration %d resolved to %q, want %q", i, got, want)
				}
			}
			fmt.Printf("%s %d iterations in %v\n", passMark("ok"), iterations, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntVar(&iterations, "n", 10000, "number of rendezvous iterations")
	return cmd
}
