package report

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/partsim/memutils/block"
	"github.com/vkngwrapper/partsim/memutils/metadata"
	"github.com/vkngwrapper/partsim/sim"
)

const separator = "************************"

// Text is a sim.Observer that writes the outcome of every event followed by the free and allocated lists,
// in the classic simulator listing format:
//
//	************************
//	ALLOCATE: 20 FROM PID: 1
//	************************
//	Free Memory:
//	Block 0:	 START: 20	 END: 99
//	Allocated Memory:
//	Block 0:	 START: 0	 END: 19	 PID: 1
//
// Writing stops at the first write error, which is available from Err.
type Text struct {
	w   io.Writer
	err error
}

var _ sim.Observer = &Text{}

func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Err returns the first error encountered while writing, if any
func (t *Text) Err() error {
	return t.err
}

func (t *Text) printf(format string, args ...any) {
	if t.err != nil {
		return
	}

	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *Text) OnEvent(result sim.Result, snapshot sim.Snapshot) {
	t.printf("%s\n", separator)

	event := result.Event
	switch event.Kind {
	case sim.EventAllocate:
		t.printf("ALLOCATE: %d FROM PID: %d\n", event.Size, event.Owner)
	case sim.EventDeallocate:
		t.printf("DEALLOCATE MEM: PID %d\n", event.Owner)
	case sim.EventCoalesce:
		t.printf("COALESCE/COMPACT\n")
	default:
		t.printf("%s\n", event)
	}

	if result.Err != nil {
		t.printf("Error: %s\n", FailureMessage(result.Err))
	}

	t.printf("%s\n", separator)
	t.printList("Free Memory", snapshot.Free)
	t.printList("Allocated Memory", snapshot.Allocated)
	t.printf("\n\n")
}

func (t *Text) printList(title string, blocks []block.Block) {
	t.printf("%s:\n", title)

	for i, b := range blocks {
		t.printf("Block %d:\t START: %d\t END: %d", i, b.Start, b.End)
		if b.IsFree() {
			t.printf("\n")
		} else {
			t.printf("\t PID: %d\n", b.Owner)
		}
	}
}

// FailureMessage renders an event failure the way the listing reports it
func FailureMessage(err error) string {
	var allocFailed *metadata.AllocationFailedError
	if errors.As(err, &allocFailed) {
		return fmt.Sprintf("Memory Allocation failed for %d blocks", allocFailed.Size)
	}

	var notFound *metadata.OwnerNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("Can't locate memory used by PID: %d", notFound.Owner)
	}

	return err.Error()
}
