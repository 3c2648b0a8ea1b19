package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/partsim/memutils"
	"github.com/vkngwrapper/partsim/memutils/block"
	"github.com/vkngwrapper/partsim/memutils/metadata"
	"github.com/vkngwrapper/partsim/sim"
)

// Summary describes the end state of a single simulation run
type Summary struct {
	Policy      metadata.PlacementPolicy
	Events      int
	Failures    int
	Statistics  memutils.DetailedStatistics
	Largest     block.Block
	HasLargest  bool
	Fingerprint uint64
}

// Summarize builds a Summary from the results of a run and the simulator it ran on
func Summarize(simulator *sim.Simulator, results []sim.Result) Summary {
	snapshot := simulator.Snapshot()
	summary := Summary{
		Policy:      simulator.Policy(),
		Events:      len(results),
		Statistics:  simulator.Statistics(),
		Fingerprint: snapshot.Fingerprint(),
	}
	summary.Largest, summary.HasLargest = snapshot.LargestFree()

	for _, result := range results {
		if !result.Succeeded() {
			summary.Failures++
		}
	}

	return summary
}

// WriteSummaryText writes a table with one row per summary
func WriteSummaryText(w io.Writer, summaries []Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, err := fmt.Fprintln(tw, "POLICY\tEVENTS\tFAILED\tALLOCATIONS\tFREE REGIONS\tFREE BYTES\tLARGEST FREE\tFRAGMENTATION\tFINGERPRINT")
	if err != nil {
		return err
	}

	for _, s := range summaries {
		largest := "-"
		if s.HasLargest {
			largest = s.Largest.String()
		}

		_, err = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%.3f\t%016x\n",
			s.Policy, s.Events, s.Failures,
			s.Statistics.AllocationCount, s.Statistics.FreeRangeCount, s.Statistics.FreeBytes,
			largest, s.Statistics.ExternalFragmentation(), s.Fingerprint)
		if err != nil {
			return err
		}
	}

	return tw.Flush()
}

// WriteSummaryJSON writes summaries as a json array
func WriteSummaryJSON(w io.Writer, summaries []Summary) error {
	writer := jwriter.NewWriter()
	arrayState := writer.Array()

	for _, s := range summaries {
		obj := arrayState.Object()
		obj.Name("Policy").String(s.Policy.String())
		obj.Name("Events").Int(s.Events)
		obj.Name("Failures").Int(s.Failures)
		obj.Name("Allocations").Int(s.Statistics.AllocationCount)
		obj.Name("AllocatedBytes").Int(s.Statistics.AllocationBytes)
		obj.Name("FreeRegions").Int(s.Statistics.FreeRangeCount)
		obj.Name("FreeBytes").Int(s.Statistics.FreeBytes)
		if s.HasLargest {
			writeBlock(obj.Name("LargestFree"), s.Largest)
		}
		obj.Name("ExternalFragmentation").Float64(s.Statistics.ExternalFragmentation())
		obj.Name("Fingerprint").String(fmt.Sprintf("%016x", s.Fingerprint))
		obj.End()
	}

	arrayState.End()

	err := writer.Error()
	if err != nil {
		return err
	}

	_, err = w.Write(append(writer.Bytes(), '\n'))
	return err
}
