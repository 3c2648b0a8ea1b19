package metadata

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/partsim/memutils"
	"github.com/vkngwrapper/partsim/memutils/block"
)

// PlacementPolicy decides which free block satisfies an allocation request, and where blocks returning
// to the free list (freed allocations and split-off fragments) are placed within it. A partition uses a
// single policy for its whole lifetime.
type PlacementPolicy uint32

const (
	// PlacementFirstFit selects the first block in free-list order that is large enough for the request.
	// Returning blocks are appended to the back of the free list, so the list stays in arrival order.
	// This policy is conventionally called FIFO.
	PlacementFirstFit PlacementPolicy = iota + 1
	// PlacementBestFit selects the smallest block that is large enough for the request. Returning blocks are
	// inserted so that the free list stays in ascending size order.
	PlacementBestFit
	// PlacementWorstFit selects the largest block that is large enough for the request. Returning blocks are
	// inserted so that the free list stays in descending size order.
	PlacementWorstFit
)

var placementPolicyMapping = map[PlacementPolicy]string{
	PlacementFirstFit: "FirstFit",
	PlacementBestFit:  "BestFit",
	PlacementWorstFit: "WorstFit",
}

var placementPolicyNames = map[string]PlacementPolicy{
	"F":        PlacementFirstFit,
	"FIFO":     PlacementFirstFit,
	"FIRSTFIT": PlacementFirstFit,
	"B":        PlacementBestFit,
	"BESTFIT":  PlacementBestFit,
	"W":        PlacementWorstFit,
	"WORSTFIT": PlacementWorstFit,
}

func (p PlacementPolicy) String() string {
	return placementPolicyMapping[p]
}

func (p PlacementPolicy) IsValid() bool {
	_, ok := placementPolicyMapping[p]
	return ok
}

// PlacementPolicies returns every supported policy
func PlacementPolicies() []PlacementPolicy {
	return []PlacementPolicy{PlacementFirstFit, PlacementBestFit, PlacementWorstFit}
}

// ParsePlacementPolicy accepts the policy names F, FIFO, FIRSTFIT, B, BESTFIT, W and WORSTFIT in any case,
// optionally preceded by a dash, as well as the strings produced by PlacementPolicy.String.
func ParsePlacementPolicy(name string) (PlacementPolicy, error) {
	normalized := strings.ToUpper(strings.TrimLeft(strings.TrimSpace(name), "-"))
	policy, ok := placementPolicyNames[normalized]
	if !ok {
		return 0, errors.Wrapf(memutils.ErrInvalidRequest, "unknown placement policy %q (expected one of F, B, W)", name)
	}

	return policy, nil
}

// Select returns the index within free of the block this policy would use for an allocation of size
// offsets, or -1 if no block is large enough. When several blocks are equally preferred, the one closest
// to the front of the list wins.
func (p PlacementPolicy) Select(free *block.List, size int) int {
	selected := -1
	selectedSize := 0

	_ = free.Visit(func(index int, b block.Block) error {
		blockSize := b.Size()
		if blockSize < size {
			return nil
		}

		if selected < 0 || p.prefers(blockSize, selectedSize) {
			selected = index
			selectedSize = blockSize
		}

		if p == PlacementFirstFit {
			return errStopVisit
		}

		return nil
	})

	return selected
}

// prefers returns true if a block of candidateSize should replace a selected block of selectedSize
func (p PlacementPolicy) prefers(candidateSize, selectedSize int) bool {
	switch p {
	case PlacementBestFit:
		return candidateSize < selectedSize
	case PlacementWorstFit:
		return candidateSize > selectedSize
	default:
		return false
	}
}

// Insert places b into free at the position this policy keeps returning blocks in
func (p PlacementPolicy) Insert(free *block.List, b block.Block) {
	switch p {
	case PlacementBestFit:
		free.InsertAscendingBySize(b)
	case PlacementWorstFit:
		free.InsertDescendingBySize(b)
	default:
		free.PushBack(b)
	}
}

var errStopVisit = errors.New("stop visit")
