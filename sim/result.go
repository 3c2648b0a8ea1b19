package sim

import (
	"github.com/vkngwrapper/partsim/memutils/block"
	"github.com/vkngwrapper/partsim/memutils/defrag"
)

// Result describes the outcome of applying a single Event
type Result struct {
	// Event is the event that was applied
	Event Event
	// Index is the event's position in the sequence of events applied to the simulator, starting at 0
	Index int
	// Err is nil if the event succeeded. Otherwise it matches one of memutils.ErrAllocationFailed,
	// memutils.ErrOwnerNotFound or memutils.ErrInvalidRequest, and the partition was left unchanged.
	Err error

	// Selected is the free block an allocation was carved from
	Selected block.Block
	// Allocated is the block an allocation produced
	Allocated block.Block
	// Fragment is the free remainder of Selected, if HasFragment is true
	Fragment    block.Block
	HasFragment bool
	// Freed is the block a deallocation returned to the free list
	Freed block.Block
	// Coalesce contains the statistics of a coalesce event
	Coalesce defrag.CoalesceStats
}

func (r Result) Succeeded() bool {
	return r.Err == nil
}
