package report

import (
	"io"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/partsim/memutils/block"
	"github.com/vkngwrapper/partsim/sim"
)

// JSON is a sim.Observer that writes one json object per line for every event, holding the event, its
// outcome, and both block lists after it was applied. Writing stops at the first write error, which is
// available from Err.
type JSON struct {
	w   io.Writer
	err error
}

var _ sim.Observer = &JSON{}

func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

// Err returns the first error encountered while writing, if any
func (j *JSON) Err() error {
	return j.err
}

func (j *JSON) OnEvent(result sim.Result, snapshot sim.Snapshot) {
	if j.err != nil {
		return
	}

	writer := jwriter.NewWriter()
	writeEvent(&writer, result, snapshot)

	j.err = writer.Error()
	if j.err != nil {
		return
	}

	_, j.err = j.w.Write(append(writer.Bytes(), '\n'))
}

func writeEvent(writer *jwriter.Writer, result sim.Result, snapshot sim.Snapshot) {
	objState := writer.Object()
	defer objState.End()

	objState.Name("Index").Int(result.Index)
	objState.Name("Event").String(result.Event.Kind.String())
	if result.Event.Kind != sim.EventCoalesce {
		objState.Name("Owner").Int(result.Event.Owner)
	}
	if result.Event.Kind == sim.EventAllocate {
		objState.Name("Size").Int(result.Event.Size)
	}

	objState.Name("Succeeded").Bool(result.Succeeded())
	if result.Err != nil {
		objState.Name("Error").String(FailureMessage(result.Err))
	} else {
		switch result.Event.Kind {
		case sim.EventAllocate:
			writeBlock(objState.Name("Allocated"), result.Allocated)
			if result.HasFragment {
				writeBlock(objState.Name("Fragment"), result.Fragment)
			}
		case sim.EventDeallocate:
			writeBlock(objState.Name("Freed"), result.Freed)
		case sim.EventCoalesce:
			objState.Name("Merges").Int(result.Coalesce.Merges)
		}
	}

	writeBlocks(objState.Name("Free"), snapshot.Free)
	writeBlocks(objState.Name("AllocatedBlocks"), snapshot.Allocated)
}

func writeBlocks(writer *jwriter.Writer, blocks []block.Block) {
	arrayState := writer.Array()
	defer arrayState.End()

	for _, b := range blocks {
		writeBlock(&arrayState, b)
	}
}

type valueWriter interface {
	Object() jwriter.ObjectState
}

func writeBlock(writer valueWriter, b block.Block) {
	obj := writer.Object()
	defer obj.End()

	obj.Name("Start").Int(b.Start)
	obj.Name("End").Int(b.End)
	if !b.IsFree() {
		obj.Name("Owner").Int(b.Owner)
	}
}
