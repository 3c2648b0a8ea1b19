package main

import (
	"io"
	"os"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/partsim/sim/script"
)

var (
	generateSize          int
	generateEvents        int
	generateOwners        int
	generateMaxAllocation int
	generateCoalesceEvery int
	generateSeed          int64
	generateOutput        string
)

func init() {
	cmd := newGenerateCmd()
	cmd.Flags().IntVar(&generateSize, "size", 100, "Partition size")
	cmd.Flags().IntVar(&generateEvents, "events", 50, "Number of events to generate")
	cmd.Flags().IntVar(&generateOwners, "owners", 8, "Number of distinct owners")
	cmd.Flags().IntVar(&generateMaxAllocation, "max-alloc", 0, "Largest allocation size (default size/4)")
	cmd.Flags().IntVar(&generateCoalesceEvery, "coalesce-every", 0, "Insert a coalesce after every N events")
	cmd.Flags().Int64Var(&generateSeed, "seed", 0, "Random seed (0 picks one)")
	cmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write the script to a file instead of stdout")
	rootCmd.AddCommand(cmd)
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random event script",
		Long: `The generate command writes a random script of allocate, deallocate and
coalesce events. The script is written as text unless --json is set.

Example:
  partsim generate --size 256 --events 200 --seed 7 > events.txt
  partsim generate --coalesce-every 10 --json -o events.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate()
		},
	}
	return cmd
}

func runGenerate() error {
	s, err := script.Generate(gofakeit.New(generateSeed), script.GenerateOptions{
		PartitionSize: generateSize,
		Events:        generateEvents,
		Owners:        generateOwners,
		MaxAllocation: generateMaxAllocation,
		CoalesceEvery: generateCoalesceEvery,
	})
	if err != nil {
		return err
	}

	if generateOutput == "" {
		return writeGenerated(os.Stdout, s)
	}

	out, err := os.Create(generateOutput)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", generateOutput)
	}

	err = saveGenerated(out, s)
	if err != nil {
		return errors.Wrapf(err, "could not write %s", generateOutput)
	}

	printInfo("Wrote %d events to %s\n", len(s.Events), generateOutput)
	return nil
}

// saveGenerated writes s to out and closes it. A failed close is reported even when the write succeeded.
func saveGenerated(out io.WriteCloser, s *script.Script) error {
	err := writeGenerated(out, s)
	closeErr := out.Close()
	if err != nil {
		return err
	}

	return errors.Wrap(closeErr, "could not close output")
}

func writeGenerated(out io.Writer, s *script.Script) error {
	if !jsonOut {
		return script.WriteText(out, s)
	}

	data, err := s.MarshalJSON()
	if err != nil {
		return err
	}

	_, err = out.Write(append(data, '\n'))
	return err
}
