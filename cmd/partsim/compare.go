package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/partsim/memutils/metadata"
	"github.com/vkngwrapper/partsim/sim"
	"github.com/vkngwrapper/partsim/sim/report"
	"github.com/vkngwrapper/partsim/sim/script"
)

var (
	compareValidate bool
)

func init() {
	cmd := newCompareCmd()
	cmd.Flags().BoolVar(&compareValidate, "validate", false, "Check partition consistency after every event")
	rootCmd.AddCommand(cmd)
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <script>",
		Short: "Replay a script under every placement policy",
		Long: `The compare command replays the same script under first-fit, best-fit and
worst-fit placement, each against its own partition, and prints one summary row
per policy: failed events, free regions, the largest free block, external
fragmentation and a fingerprint of the final layout.

Example:
  partsim compare events.txt
  partsim compare events.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(args)
		},
	}
	return cmd
}

func runCompare(args []string) error {
	s, err := script.Load(args[0])
	if err != nil {
		return err
	}

	summaries, err := comparePolicies(s, metadata.PlacementPolicies())
	if err != nil {
		return err
	}

	if quiet {
		return nil
	}
	if jsonOut {
		return report.WriteSummaryJSON(os.Stdout, summaries)
	}
	return report.WriteSummaryText(os.Stdout, summaries)
}

// comparePolicies replays s once per policy, each on its own simulator and goroutine
func comparePolicies(s *script.Script, policies []metadata.PlacementPolicy) ([]report.Summary, error) {
	logger := newLogger(os.Stderr)
	summaries := make([]report.Summary, len(policies))
	errs := make([]error, len(policies))

	var wg conc.WaitGroup
	for i, policy := range policies {
		i, policy := i, policy
		wg.Go(func() {
			simulator, err := sim.New(logger.With("policy", policy.String()), sim.CreateOptions{
				PartitionSize:     s.PartitionSize,
				Policy:            policy,
				ValidateEachEvent: compareValidate,
			})
			if err != nil {
				errs[i] = err
				return
			}

			results, err := simulator.Run(s.Events, nil)
			if err != nil {
				errs[i] = errors.Wrapf(err, "%s simulation stopped", policy)
				return
			}

			summaries[i] = report.Summarize(simulator, results)
			printVerbose("%s: %d events replayed\n", policy, len(results))
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return summaries, nil
}
