package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/partsim/sim"
	"github.com/vkngwrapper/partsim/sim/report"
	"github.com/vkngwrapper/partsim/sim/script"
	"golang.org/x/exp/slog"
)

var (
	runPolicy   string
	runValidate bool
	runSummary  bool
	runMap      bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVarP(&runPolicy, "policy", "p", "FIFO", "Placement policy: F/FIFO, B/BESTFIT or W/WORSTFIT")
	cmd.Flags().BoolVar(&runValidate, "validate", false, "Check partition consistency after every event")
	cmd.Flags().BoolVar(&runSummary, "summary", false, "Print a summary of the final layout")
	cmd.Flags().BoolVar(&runMap, "map", false, "Print a detailed json map of the final layout")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Replay a script under one placement policy",
		Long: `The run command replays every event of a script against a fresh partition and
prints the free and allocated lists after each one. Scripts ending in .json are
read as JSON scripts; anything else is read as a text script.

Example:
  partsim run events.txt
  partsim run events.txt --policy BESTFIT
  partsim run events.json -p W --json
  partsim run events.txt --summary --map`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
	return cmd
}

type reportObserver interface {
	sim.Observer
	Err() error
}

func runRun(args []string) error {
	policy, err := parsePolicy(runPolicy)
	if err != nil {
		return err
	}

	s, err := script.Load(args[0])
	if err != nil {
		return err
	}
	printVerbose("Loaded %d events for a partition of %d\n", len(s.Events), s.PartitionSize)

	simulator, err := sim.New(newLogger(os.Stderr), sim.CreateOptions{
		PartitionSize:     s.PartitionSize,
		Policy:            policy,
		ValidateEachEvent: runValidate,
	})
	if err != nil {
		return err
	}

	var observer reportObserver
	switch {
	case quiet:
	case jsonOut:
		observer = report.NewJSON(os.Stdout)
	default:
		observer = report.NewText(os.Stdout)
	}

	results, err := simulator.Run(s.Events, observer)
	if err != nil {
		return errors.Wrapf(err, "simulation of %s stopped", args[0])
	}

	if observer != nil && observer.Err() != nil {
		return errors.Wrap(observer.Err(), "could not write report")
	}

	simulator.LogLiveAllocations(slog.LevelDebug)

	if runMap && !quiet {
		writer := jwriter.NewWriter()
		simulator.PrintDetailedMap(&writer)
		if err = writer.Error(); err != nil {
			return err
		}
		if _, err = os.Stdout.Write(append(writer.Bytes(), '\n')); err != nil {
			return err
		}
	}

	if runSummary && !quiet {
		summaries := []report.Summary{report.Summarize(simulator, results)}
		if jsonOut {
			return report.WriteSummaryJSON(os.Stdout, summaries)
		}
		return report.WriteSummaryText(os.Stdout, summaries)
	}

	return nil
}
