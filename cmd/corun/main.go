package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"corun"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "corun",
		Short:         "Exercise the corun coroutine runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configPath != "" {
				if err := corun.Configure(corun.LoadConfig(configPath)); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
			corun.EnableRuntime()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML runtime config")

	root.AddCommand(newDemoCommand())
	root.AddCommand(newStressCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
