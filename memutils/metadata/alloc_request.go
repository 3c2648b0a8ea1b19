package metadata

import "github.com/vkngwrapper/partsim/memutils/block"

// AllocationRequest is a type returned from PartitionMetadata.CreateAllocationRequest which indicates which
// free block the metadata intends to carve an allocation from. It can be committed to the metadata with
// PartitionMetadata.Alloc.
type AllocationRequest struct {
	// Owner is the process the allocation is made for
	Owner int
	// Size is the number of offsets requested
	Size int
	// FreeIndex is the position of Selected within the free list at the time the request was created
	FreeIndex int
	// Selected is the free block the allocation will be carved from
	Selected block.Block
	// Policy is the placement policy that chose Selected
	Policy PlacementPolicy
}

// Allocated returns the block the owner will hold once the request is committed
func (r AllocationRequest) Allocated() block.Block {
	allocated, _, _ := r.Selected.Split(r.Owner, r.Size)
	return allocated
}

// Fragment returns the free remainder of Selected that goes back to the free list once the request is
// committed. The second return value is false when the request consumes the whole selected block.
func (r AllocationRequest) Fragment() (block.Block, bool) {
	_, fragment, hasFragment := r.Selected.Split(r.Owner, r.Size)
	return fragment, hasFragment
}
