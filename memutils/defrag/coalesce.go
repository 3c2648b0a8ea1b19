package defrag

import (
	"github.com/vkngwrapper/partsim/memutils/block"
)

// Coalesce drains list from the front into a new list kept in ascending address order, then merges every
// run of address-adjacent blocks. The returned list is in address order no matter what order list was in.
// list is left empty.
func Coalesce(list *block.List) (*block.List, CoalesceStats) {
	var pass PassContext
	result := CoalescePass(list, &pass)
	return result, pass.Stats
}

// CoalescePass is Coalesce with a caller-provided PassContext, which allows the caller to observe
// individual merges. The pass's statistics are added to those already present in the context.
func CoalescePass(list *block.List, pass *PassContext) *block.List {
	pass.Stats.BlocksBefore += list.Len()

	ordered := block.NewList()
	for {
		b, ok := list.PopFront()
		if !ok {
			break
		}

		ordered.InsertByAddress(b)
	}

	result := block.NewList(pass.mergeAdjacent(ordered.Blocks())...)
	pass.Stats.BlocksAfter += result.Len()

	return result
}
