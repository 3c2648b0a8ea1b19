package defrag

import (
	"fmt"

	"github.com/vkngwrapper/partsim/memutils/block"
)

// PassContext tracks a single merge walk over an address-ordered list of free blocks
type PassContext struct {
	// Stats contains statistics for the current pass
	Stats CoalesceStats
	// OnMerge is called every time a block is absorbed into its predecessor, with the predecessor as it was
	// before the merge, the absorbed block, and the merged result. It may be nil.
	OnMerge func(current, next, merged block.Block)
}

func (p *PassContext) recordMerge(current, next, merged block.Block) {
	if merged.Size() != current.Size()+next.Size() {
		panic(fmt.Sprintf("merging %s with %s produced %s, which does not cover both blocks", current, next, merged))
	}

	p.Stats.Merges++
	p.Stats.BytesMerged += next.Size()

	if p.OnMerge != nil {
		p.OnMerge(current, next, merged)
	}
}

// mergeAdjacent walks an address-ordered slice once, extending each block over every successor that begins
// immediately after it ends. A block keeps absorbing successors until it meets a gap.
func (p *PassContext) mergeAdjacent(ordered []block.Block) []block.Block {
	if len(ordered) == 0 {
		return ordered
	}

	merged := make([]block.Block, 0, len(ordered))
	current := ordered[0]

	for _, next := range ordered[1:] {
		if current.Precedes(next) {
			result := current.Merge(next)
			p.recordMerge(current, next, result)
			current = result
			continue
		}

		merged = append(merged, current)
		current = next
	}

	return append(merged, current)
}
