// Command kernelctl is a debug and inspection CLI over an in-process
// kernel.Context: it never boots real hardware, it builds a small demo
// process tree the way a unit test would and lets a developer poke at it
// from the shell — list processes, inspect the frame bitmap, render a
// snapshot PNG of the scheduler state, or drive one of the documented
// process/memory scenarios end to end and diff expected vs. observed.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	log      = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:   "kernelctl",
		Short: "Inspect and exercise the Corvid kernel's process/memory subsystem",
		Long: `kernelctl builds an in-process kernel.Context — the frame bitmap, the
kernel page directory, the process table, and the ready/reap/sleeper
queues — the same way the test suite does, and gives a developer a shell
to poke at it: list processes, inspect physical frame usage, render a
snapshot of scheduler state, or replay one of the documented scenarios.

It does not boot real hardware and never will; see internal/x86's doc
comment for the realhw backend this tool deliberately does not exercise.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			log.SetLevel(lvl)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")

	root.AddCommand(newPSCommand())
	root.AddCommand(newFramesCommand())
	root.AddCommand(newSnapshotCommand())
	root.AddCommand(newRunScenarioCommand())

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
