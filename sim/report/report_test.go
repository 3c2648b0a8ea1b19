package report_test

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/partsim/memutils/metadata"
	"github.com/vkngwrapper/partsim/sim"
	"github.com/vkngwrapper/partsim/sim/report"
	"golang.org/x/exp/slog"
)

func runEvents(t *testing.T, policy metadata.PlacementPolicy, observer sim.Observer, events ...sim.Event) (*sim.Simulator, []sim.Result) {
	t.Helper()

	simulator, err := sim.New(slog.New(slog.NewTextHandler(io.Discard)), sim.CreateOptions{
		PartitionSize: 100,
		Policy:        policy,
	})
	require.NoError(t, err)

	results, err := simulator.Run(events, observer)
	require.NoError(t, err)

	return simulator, results
}

func TestTextReport(t *testing.T) {
	var buf bytes.Buffer
	text := report.NewText(&buf)

	runEvents(t, metadata.PlacementFirstFit, text,
		sim.Allocate(1, 20),
		sim.Deallocate(4),
		sim.Coalesce(),
	)
	require.NoError(t, text.Err())

	require.Equal(t, "************************\n"+
		"ALLOCATE: 20 FROM PID: 1\n"+
		"************************\n"+
		"Free Memory:\n"+
		"Block 0:\t START: 20\t END: 99\n"+
		"Allocated Memory:\n"+
		"Block 0:\t START: 0\t END: 19\t PID: 1\n"+
		"\n\n"+
		"************************\n"+
		"DEALLOCATE MEM: PID 4\n"+
		"Error: Can't locate memory used by PID: 4\n"+
		"************************\n"+
		"Free Memory:\n"+
		"Block 0:\t START: 20\t END: 99\n"+
		"Allocated Memory:\n"+
		"Block 0:\t START: 0\t END: 19\t PID: 1\n"+
		"\n\n"+
		"************************\n"+
		"COALESCE/COMPACT\n"+
		"************************\n"+
		"Free Memory:\n"+
		"Block 0:\t START: 20\t END: 99\n"+
		"Allocated Memory:\n"+
		"Block 0:\t START: 0\t END: 19\t PID: 1\n"+
		"\n\n", buf.String())
}

func TestFailureMessage(t *testing.T) {
	require.Equal(t, "Memory Allocation failed for 200 blocks",
		report.FailureMessage(&metadata.AllocationFailedError{Owner: 1, Size: 200}))
	require.Equal(t, "Can't locate memory used by PID: 7",
		report.FailureMessage(&metadata.OwnerNotFoundError{Owner: 7}))
	require.Equal(t, "something else", report.FailureMessage(errors.New("something else")))
}

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("disk full")
}

func TestTextReportStopsAtFirstError(t *testing.T) {
	w := &failingWriter{}
	text := report.NewText(w)

	runEvents(t, metadata.PlacementFirstFit, text, sim.Allocate(1, 20), sim.Allocate(2, 20))
	require.EqualError(t, text.Err(), "disk full")
	require.Equal(t, 1, w.writes)
}

func TestJSONReport(t *testing.T) {
	var buf bytes.Buffer
	jsonReport := report.NewJSON(&buf)

	runEvents(t, metadata.PlacementBestFit, jsonReport,
		sim.Allocate(1, 20),
		sim.Allocate(2, 500),
		sim.Deallocate(1),
		sim.Coalesce(),
	)
	require.NoError(t, jsonReport.Err())

	var lines []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 4)

	require.JSONEq(t, `{
		"Index": 0, "Event": "Allocate", "Owner": 1, "Size": 20, "Succeeded": true,
		"Allocated": {"Start": 0, "End": 19, "Owner": 1},
		"Fragment": {"Start": 20, "End": 99},
		"Free": [{"Start": 20, "End": 99}],
		"AllocatedBlocks": [{"Start": 0, "End": 19, "Owner": 1}]
	}`, lines[0])
	require.JSONEq(t, `{
		"Index": 1, "Event": "Allocate", "Owner": 2, "Size": 500, "Succeeded": false,
		"Error": "Memory Allocation failed for 500 blocks",
		"Free": [{"Start": 20, "End": 99}],
		"AllocatedBlocks": [{"Start": 0, "End": 19, "Owner": 1}]
	}`, lines[1])
	require.JSONEq(t, `{
		"Index": 2, "Event": "Deallocate", "Owner": 1, "Succeeded": true,
		"Freed": {"Start": 0, "End": 19},
		"Free": [{"Start": 0, "End": 19}, {"Start": 20, "End": 99}],
		"AllocatedBlocks": []
	}`, lines[2])
	require.JSONEq(t, `{
		"Index": 3, "Event": "Coalesce", "Succeeded": true, "Merges": 1,
		"Free": [{"Start": 0, "End": 99}],
		"AllocatedBlocks": []
	}`, lines[3])
}

func TestSummary(t *testing.T) {
	events := []sim.Event{
		sim.Allocate(1, 10),
		sim.Allocate(2, 30),
		sim.Allocate(3, 10),
		sim.Deallocate(2),
		sim.Deallocate(1),
		sim.Allocate(4, 5),
		sim.Allocate(5, 90),
	}

	var summaries []report.Summary
	for _, policy := range metadata.PlacementPolicies() {
		simulator, results := runEvents(t, policy, nil, events...)
		summaries = append(summaries, report.Summarize(simulator, results))
	}

	require.Len(t, summaries, 3)
	for _, s := range summaries {
		require.Equal(t, 7, s.Events)
		require.Equal(t, 1, s.Failures)
		require.True(t, s.HasLargest)
		require.Equal(t, 2, s.Statistics.AllocationCount)
	}

	// FirstFit and WorstFit both carve owner 4 from the block at offset 50; BestFit reuses offset 0.
	require.Equal(t, summaries[0].Fingerprint, summaries[2].Fingerprint)
	require.NotEqual(t, summaries[0].Fingerprint, summaries[1].Fingerprint)
	require.Equal(t, 5, summaries[1].Statistics.FreeRangeSizes.Min)

	var text bytes.Buffer
	require.NoError(t, report.WriteSummaryText(&text, summaries))
	rows := strings.Split(strings.TrimSpace(text.String()), "\n")
	require.Len(t, rows, 4)
	require.True(t, strings.HasPrefix(rows[0], "POLICY"))
	require.True(t, strings.HasPrefix(rows[1], "FirstFit"))
	require.True(t, strings.HasPrefix(rows[2], "BestFit"))
	require.True(t, strings.HasPrefix(rows[3], "WorstFit"))

	var jsonOut bytes.Buffer
	require.NoError(t, report.WriteSummaryJSON(&jsonOut, summaries))
	require.Contains(t, jsonOut.String(), `"Policy":"WorstFit"`)
	require.Contains(t, jsonOut.String(), `"Failures":1`)
}
