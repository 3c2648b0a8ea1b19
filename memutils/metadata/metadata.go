package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/partsim/memutils"
	"github.com/vkngwrapper/partsim/memutils/block"
	"github.com/vkngwrapper/partsim/memutils/defrag"
)

// Metadata represents a single partition of memory shared by many owners. It manages the allocations
// within the partition, allowing allocations to be requested and freed and free space to be coalesced, as
// well as enumerated and queried.
type Metadata interface {
	// Init must be called before the Metadata is used. It resets the partition to a single free block
	// covering size offsets.
	Init(size int) error
	// Size retrieves the size in offsets that the partition was initialized with
	Size() int
	// Policy is the placement policy used to choose free blocks and order the free list
	Policy() PlacementPolicy

	// Validate performs internal consistency checks on the metadata. When the implementation is functioning
	// correctly, it should not be possible for this method to return an error.
	Validate() error
	// AllocationCount returns the number of live allocations in the partition
	AllocationCount() int
	// FreeRegionsCount returns the number of blocks in the free list. Adjacent free blocks are counted
	// separately until they are coalesced.
	FreeRegionsCount() int
	// SumFreeSize returns the number of free offsets in the partition
	SumFreeSize() int
	// IsEmpty will return true if this partition has no live allocations
	IsEmpty() bool

	// FreeBlocks returns a copy of the free list in its current order
	FreeBlocks() []block.Block
	// AllocatedBlocks returns a copy of the allocated list, which is always in ascending address order
	AllocatedBlocks() []block.Block
	// OwnerBlock returns the block currently held by owner, if any
	OwnerBlock(owner int) (block.Block, bool)
	// VisitAllRegions will call the provided callback once for each allocated and free block in ascending
	// address order.
	VisitAllRegions(handleBlock func(b block.Block) error) error

	// AddDetailedStatistics sums this partition's allocation statistics into the provided
	// memutils.DetailedStatistics object.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this partition's allocation statistics into the provided memutils.Statistics object.
	AddStatistics(stats *memutils.Statistics)
	// BlockJsonData populates a json object with summary information about this partition
	BlockJsonData(json jwriter.ObjectState)

	// CreateAllocationRequest retrieves an AllocationRequest indicating which free block the placement
	// policy would carve a new allocation of size offsets for owner from. The boolean return value is false
	// if no free block is large enough. An error is returned only for malformed requests.
	CreateAllocationRequest(owner int, size int) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest. The implementation must return an error if the request is no
	// longer valid, i.e. the selected free block no longer exists at the requested position.
	Alloc(request AllocationRequest) error
	// Free returns the allocation held by owner to the free list and returns the freed block
	Free(owner int) (block.Block, error)
	// CoalescePass brings the free list into address order and merges adjacent free blocks, recording the
	// work done in pass
	CoalescePass(pass *defrag.PassContext)
	// Clear instantly frees all allocations and restores the partition to a single free block
	Clear()
}

// metadataBase is a simple struct that provides a few shared utilities for Metadata implementations
type metadataBase struct {
	size int
}

func (m *metadataBase) init(size int) error {
	err := memutils.CheckPositive(size, "partition size")
	if err != nil {
		return err
	}

	m.size = size
	return nil
}

// Size returns the size of the partition in offsets
func (m *metadataBase) Size() int { return m.size }

func (m *metadataBase) writeBlockJson(json jwriter.ObjectState, unusedBytes, allocationCount, unusedRangeCount int) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("UnusedBytes").Int(unusedBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
}
