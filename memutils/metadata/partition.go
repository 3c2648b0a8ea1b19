package metadata

import (
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/partsim/memutils"
	"github.com/vkngwrapper/partsim/memutils/block"
	"github.com/vkngwrapper/partsim/memutils/defrag"
)

// PartitionMetadata is a Metadata implementation that manages a single contiguous partition with two
// lists of blocks: a free list, ordered by the partition's PlacementPolicy, and an allocated list, always
// ordered by address. Every offset of the partition belongs to exactly one block in one of the two lists.
//
// Allocations are made by carving the start of a free block chosen by the policy, returning the remainder
// (if any) to the free list as a fragment. Frees return the owner's block to the free list unchanged:
// adjacent free blocks are only merged when CoalescePass is called. Coalescing leaves the free list in
// address order until blocks are returned to it again.
//
// PartitionMetadata is not safe for concurrent use.
type PartitionMetadata struct {
	metadataBase

	policy      PlacementPolicy
	sumFreeSize int
	freeList    *block.List
	allocList   *block.List
	owners      *swiss.Map[int, block.Block]
}

var _ Metadata = &PartitionMetadata{}

// NewPartitionMetadata creates a new PartitionMetadata that places allocations with the provided policy.
// Init must be called before it is used.
func NewPartitionMetadata(policy PlacementPolicy) (*PartitionMetadata, error) {
	if !policy.IsValid() {
		return nil, errors.Wrapf(memutils.ErrInvalidRequest, "unknown placement policy %d", policy)
	}

	return &PartitionMetadata{
		policy:    policy,
		freeList:  block.NewList(),
		allocList: block.NewList(),
		owners:    swiss.NewMap[int, block.Block](42),
	}, nil
}

// Init prepares this structure for allocations and sizes the partition based on the parameter size. Any
// existing allocations are discarded.
func (m *PartitionMetadata) Init(size int) error {
	err := m.metadataBase.init(size)
	if err != nil {
		return err
	}

	m.Clear()
	return nil
}

// Clear instantly frees all allocations and restores the partition to a single free block
func (m *PartitionMetadata) Clear() {
	m.freeList.Clear()
	m.allocList.Clear()
	m.owners = swiss.NewMap[int, block.Block](42)
	m.sumFreeSize = 0

	if m.size > 0 {
		m.freeList.PushFront(block.Free(0, m.size-1))
		m.sumFreeSize = m.size
	}
}

func (m *PartitionMetadata) Policy() PlacementPolicy { return m.policy }

// SumFreeSize returns the number of free offsets in the partition
func (m *PartitionMetadata) SumFreeSize() int {
	return m.sumFreeSize
}

// AllocationCount returns the number of live allocations in the partition
func (m *PartitionMetadata) AllocationCount() int {
	return m.allocList.Len()
}

// FreeRegionsCount returns the number of blocks in the free list
func (m *PartitionMetadata) FreeRegionsCount() int {
	return m.freeList.Len()
}

// IsEmpty will return true if this partition has no live allocations
func (m *PartitionMetadata) IsEmpty() bool {
	return m.AllocationCount() == 0
}

// FreeBlocks returns a copy of the free list in its current order
func (m *PartitionMetadata) FreeBlocks() []block.Block {
	return m.freeList.Blocks()
}

// AllocatedBlocks returns a copy of the allocated list in ascending address order
func (m *PartitionMetadata) AllocatedBlocks() []block.Block {
	return m.allocList.Blocks()
}

// OwnerBlock returns the block currently held by owner, if any
func (m *PartitionMetadata) OwnerBlock(owner int) (block.Block, bool) {
	return m.owners.Get(owner)
}

// CreateAllocationRequest retrieves an AllocationRequest indicating which free block the placement policy
// would carve a new allocation of size offsets for owner from. That object can be passed to Alloc to commit
// the allocation.
//
// The boolean return value is false, with a nil error, when no free block is large enough. An error is
// returned when owner or size is not positive, or when owner already holds an allocation.
func (m *PartitionMetadata) CreateAllocationRequest(owner int, size int) (bool, AllocationRequest, error) {
	err := m.checkAllocationParameters(owner, size)
	if err != nil {
		return false, AllocationRequest{}, err
	}
	memutils.DebugValidate(m)

	index := m.policy.Select(m.freeList, size)
	if index < 0 {
		return false, AllocationRequest{}, nil
	}

	selected, _ := m.freeList.At(index)
	return true, AllocationRequest{
		Owner:     owner,
		Size:      size,
		FreeIndex: index,
		Selected:  selected,
		Policy:    m.policy,
	}, nil
}

func (m *PartitionMetadata) checkAllocationParameters(owner int, size int) error {
	err := memutils.CheckPositive(owner, "owner")
	if err != nil {
		return err
	}

	err = memutils.CheckPositive(size, "allocation size")
	if err != nil {
		return err
	}

	existing, allocated := m.owners.Get(owner)
	if allocated {
		return &OwnerAlreadyAllocatedError{Owner: owner, Existing: existing}
	}

	return nil
}

// Alloc commits an AllocationRequest created by CreateAllocationRequest. The selected free block is removed
// from the free list, the owner's new block is inserted into the allocated list by address, and the
// remainder of the selected block, if any, is returned to the free list according to the placement policy.
//
// An error is returned, and nothing is changed, if the request no longer matches the free list.
func (m *PartitionMetadata) Alloc(request AllocationRequest) error {
	if request.Policy != m.policy {
		return errors.Errorf("allocation request was created by a %s partition, but this partition is %s", request.Policy, m.policy)
	}

	err := m.checkAllocationParameters(request.Owner, request.Size)
	if err != nil {
		return err
	}

	current, ok := m.freeList.At(request.FreeIndex)
	if !ok || current != request.Selected {
		return errors.Errorf("allocation request selected free block %s at index %d, which is no longer present", request.Selected, request.FreeIndex)
	}

	if current.Size() < request.Size {
		return errors.Errorf("allocation request for %d offsets selected free block %s, which is too small", request.Size, current)
	}

	m.freeList.RemoveAt(request.FreeIndex)

	allocated, fragment, hasFragment := current.Split(request.Owner, request.Size)
	m.allocList.InsertByAddress(allocated)
	m.owners.Put(request.Owner, allocated)
	m.sumFreeSize -= allocated.Size()

	if hasFragment {
		m.policy.Insert(m.freeList, fragment)
	}

	memutils.DebugValidate(m)
	return nil
}

// Allocate creates and commits an allocation request in one step. If no free block is large enough, an
// *AllocationFailedError is returned and nothing is changed.
func (m *PartitionMetadata) Allocate(owner int, size int) (AllocationRequest, error) {
	success, request, err := m.CreateAllocationRequest(owner, size)
	if err != nil {
		return AllocationRequest{}, err
	}

	if !success {
		return AllocationRequest{}, &AllocationFailedError{Owner: owner, Size: size}
	}

	return request, m.Alloc(request)
}

// Free returns the block held by owner to the free list, placing it according to the placement policy, and
// returns the freed block. If owner holds no allocation, an *OwnerNotFoundError is returned and nothing is
// changed.
func (m *PartitionMetadata) Free(owner int) (block.Block, error) {
	err := memutils.CheckPositive(owner, "owner")
	if err != nil {
		return block.Block{}, err
	}

	index := m.allocList.IndexByOwner(owner)
	if index < 0 {
		return block.Block{}, &OwnerNotFoundError{Owner: owner}
	}

	allocated, _ := m.allocList.RemoveAt(index)
	m.owners.Delete(owner)

	freed := allocated.WithOwner(block.FreeOwner)
	memutils.DebugCheckPositive(freed.Size(), "freed block size")
	m.policy.Insert(m.freeList, freed)
	m.sumFreeSize += freed.Size()

	memutils.DebugValidate(m)
	return freed, nil
}

// Coalesce brings the free list into address order and merges adjacent free blocks
func (m *PartitionMetadata) Coalesce() defrag.CoalesceStats {
	var pass defrag.PassContext
	m.CoalescePass(&pass)
	return pass.Stats
}

// CoalescePass is Coalesce with a caller-provided PassContext, which allows the caller to observe individual
// merges. The allocated list is not touched.
func (m *PartitionMetadata) CoalescePass(pass *defrag.PassContext) {
	m.freeList = defrag.CoalescePass(m.freeList, pass)
	memutils.DebugValidate(m)
}

// VisitAllRegions will call the provided callback once for each allocated and free block in ascending
// address order, stopping at the first error returned by the callback.
func (m *PartitionMetadata) VisitAllRegions(handleBlock func(b block.Block) error) error {
	regions := block.NewList(m.allocList.Blocks()...)
	_ = m.freeList.Visit(func(index int, b block.Block) error {
		regions.InsertByAddress(b)
		return nil
	})

	return regions.Visit(func(index int, b block.Block) error {
		return handleBlock(b)
	})
}

// Validate performs internal consistency checks on the metadata: that the free and allocated lists
// together tile the partition exactly, that blocks carry owners matching the list they are in, that the
// allocated list is in address order with one block per owner, and that cached totals are correct.
func (m *PartitionMetadata) Validate() error {
	if m.size < 1 {
		return errors.Errorf("partition has invalid size %d", m.size)
	}

	err := m.freeList.Visit(func(index int, b block.Block) error {
		if !b.IsValid() {
			return errors.Errorf("free block %s at index %d is malformed", b, index)
		}
		if !b.IsFree() {
			return errors.Errorf("block %s at index %d of the free list has an owner", b, index)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if m.sumFreeSize != m.freeList.SumSize() {
		return errors.Errorf("the metadata's free size %d does not match the free list's combined size %d", m.sumFreeSize, m.freeList.SumSize())
	}

	previousEnd := -1
	err = m.allocList.Visit(func(index int, b block.Block) error {
		if !b.IsValid() {
			return errors.Errorf("allocated block %s at index %d is malformed", b, index)
		}
		if b.IsFree() {
			return errors.Errorf("block %s at index %d of the allocated list has no owner", b, index)
		}
		if b.Start <= previousEnd {
			return errors.Errorf("allocated block %s at index %d is out of address order", b, index)
		}
		previousEnd = b.End

		indexed, ok := m.owners.Get(b.Owner)
		if !ok {
			return errors.Errorf("allocated block %s is missing from the owner index", b)
		}
		if indexed != b {
			return errors.Errorf("allocated block %s is indexed as %s: owner %d may hold more than one block", b, indexed, b.Owner)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if m.owners.Count() != m.allocList.Len() {
		return errors.Errorf("owner index holds %d owners, but there are %d allocated blocks", m.owners.Count(), m.allocList.Len())
	}

	nextOffset := 0
	err = m.VisitAllRegions(func(b block.Block) error {
		if b.Start < nextOffset {
			return errors.Errorf("block %s overlaps the previous block, which ends at offset %d", b, nextOffset-1)
		}
		if b.Start > nextOffset {
			return errors.Errorf("offsets %d through %d do not belong to any block", nextOffset, b.Start-1)
		}

		nextOffset = b.End + 1
		return nil
	})
	if err != nil {
		return err
	}

	if nextOffset != m.size {
		return errors.Errorf("blocks cover offsets up to %d, but the partition has a size of %d", nextOffset, m.size)
	}

	return nil
}

// AddDetailedStatistics sums this partition's allocation statistics into the provided
// memutils.DetailedStatistics object.
func (m *PartitionMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.PartitionCount++
	stats.PartitionBytes += m.Size()

	_ = m.freeList.Visit(func(index int, b block.Block) error {
		stats.AddFreeRange(b.Size())
		return nil
	})

	_ = m.allocList.Visit(func(index int, b block.Block) error {
		stats.AddAllocation(b.Size())
		return nil
	})
}

// AddStatistics sums this partition's allocation statistics into the provided memutils.Statistics object.
func (m *PartitionMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.PartitionCount++
	stats.PartitionBytes += m.Size()
	stats.AllocationCount += m.allocList.Len()
	stats.AllocationBytes += m.Size() - m.sumFreeSize
}

// BlockJsonData populates a json object with summary information about this partition
func (m *PartitionMetadata) BlockJsonData(json jwriter.ObjectState) {
	json.Name("Policy").String(m.policy.String())
	m.writeBlockJson(json, m.sumFreeSize, m.AllocationCount(), m.FreeRegionsCount())
}
