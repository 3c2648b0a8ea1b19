package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/partsim/memutils/metadata"
	"golang.org/x/exp/slog"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "partsim",
	Short: "Simulate contiguous memory partition allocation",
	Long: `partsim replays a script of allocate, deallocate and coalesce events against a
single contiguous memory partition, using first-fit (FIFO), best-fit or worst-fit
placement, and reports the free and allocated blocks after every event.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every block selection, split and merge")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the logger handed to simulators: debug records with --verbose, errors only with
// --quiet, warnings otherwise
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(w))
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// parsePolicy accepts the same spellings as the classic -F / -B / -W switches
func parsePolicy(name string) (metadata.PlacementPolicy, error) {
	policy, err := metadata.ParsePlacementPolicy(name)
	if err != nil {
		return 0, errors.Wrapf(err, "unknown policy %q (use F/FIFO, B/BESTFIT or W/WORSTFIT)", name)
	}
	return policy, nil
}
