package metadata

import (
	"fmt"

	"github.com/vkngwrapper/partsim/memutils"
	"github.com/vkngwrapper/partsim/memutils/block"
)

// AllocationFailedError is returned when no free block is large enough for a request. It matches
// memutils.ErrAllocationFailed.
type AllocationFailedError struct {
	Owner int
	Size  int
}

func (e *AllocationFailedError) Error() string {
	return fmt.Sprintf("memory allocation of %d blocks failed for owner %d", e.Size, e.Owner)
}

func (e *AllocationFailedError) Is(target error) bool {
	return target == memutils.ErrAllocationFailed
}

// OwnerNotFoundError is returned when a deallocation names an owner that holds no allocation. It matches
// memutils.ErrOwnerNotFound.
type OwnerNotFoundError struct {
	Owner int
}

func (e *OwnerNotFoundError) Error() string {
	return fmt.Sprintf("can't locate memory used by owner %d", e.Owner)
}

func (e *OwnerNotFoundError) Is(target error) bool {
	return target == memutils.ErrOwnerNotFound
}

// OwnerAlreadyAllocatedError is returned when an allocation is requested for an owner that already holds
// one. It matches memutils.ErrInvalidRequest.
type OwnerAlreadyAllocatedError struct {
	Owner    int
	Existing block.Block
}

func (e *OwnerAlreadyAllocatedError) Error() string {
	return fmt.Sprintf("owner %d already holds allocation %s", e.Owner, e.Existing)
}

func (e *OwnerAlreadyAllocatedError) Is(target error) bool {
	return target == memutils.ErrInvalidRequest
}
