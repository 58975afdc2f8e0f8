// runnerdemo drives a command through the runner lifecycle and prints every
// published event, e.g.:
//
//	runnerdemo --timeout 5s -- sleep 10
package main

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/universal-packages/universal-base-runner/common/log"
	"github.com/universal-packages/universal-base-runner/common/stats"
	"github.com/universal-packages/universal-base-runner/runner"
	"github.com/universal-packages/universal-base-runner/runner/runners"
	"github.com/universal-packages/universal-base-runner/runner/works"
)

func main() {
	var timeout time.Duration
	var runs int
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "runnerdemo [flags] -- argv...",
		Short: "runnerdemo runs a command through the runner lifecycle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			return run(args, timeout, runs)
		},
	}
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "bound on the running phase, 0 disables")
	rootCmd.Flags().IntVar(&runs, "runs", 1, "drive the command this many times (multi mode when >1)")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(argv []string, timeout time.Duration, runs int) error {
	stat := stats.DefaultStatsReceiver()
	work := works.NewCommandWork(argv...)
	opts := runner.Options{Timeout: timeout, Stats: stat}
	if runs > 1 {
		opts.RunMode = runner.RunModeMulti
	}
	r := runners.NewBaseRunner(work, opts)

	r.SubscribeAll(func(e runner.Event) {
		entry := log.Log.WithField("event", string(e.Kind))
		if e.Reason != "" {
			entry = entry.WithField("reason", e.Reason)
		}
		if e.Err != nil {
			entry = entry.WithField("error", e.Err)
		}
		if e.Kind.Terminal() {
			entry = entry.WithField("measurement", e.Measurement)
		}
		entry.Info(e.Message)
	})

	if runs < 1 {
		runs = 1
	}
	for i := 0; i < runs; i++ {
		if err := r.Run(); err != nil {
			return err
		}
		sums := r.HistoryMatching(runner.MaskFinished)
		last := sums[len(sums)-1]
		log.Infof("run %s finished as %v in %v", last.RunID, last.Status, last.Measurement)
		if out := work.Stdout(); out != "" {
			log.Infof("stdout:\n%s", out)
		}
	}
	log.Infof("stats: %s", stat.Render())
	return nil
}
