// Package block provides the Block value type, which describes one contiguous range of a partition, and
// List, the ordered sequence of blocks that the partition metadata keeps its free and allocated regions in.
package block

import (
	"fmt"

	"github.com/vkngwrapper/partsim/memutils"
)

// FreeOwner is the owner value carried by blocks that are not allocated to anyone
const FreeOwner = 0

// Block describes the inclusive offset range [Start, End] of a partition and the owner it currently belongs
// to. Blocks are values: splitting or merging a block produces new Blocks and leaves the original untouched.
type Block struct {
	Owner int
	Start int
	End   int
}

// New creates a Block covering [start, end] belonging to owner
func New(owner, start, end int) Block {
	return Block{Owner: owner, Start: start, End: end}
}

// Free creates an unowned Block covering [start, end]
func Free(start, end int) Block {
	return Block{Owner: FreeOwner, Start: start, End: end}
}

// Size is the number of offsets covered by the block. A well-formed block always has a size of at least 1.
func (b Block) Size() int {
	return memutils.RangeSize(b.Start, b.End)
}

func (b Block) IsFree() bool {
	return b.Owner == FreeOwner
}

// IsValid returns true if the block starts at a non-negative offset and covers at least one offset
func (b Block) IsValid() bool {
	return b.Start >= 0 && b.End >= b.Start
}

func (b Block) Contains(offset int) bool {
	return offset >= b.Start && offset <= b.End
}

func (b Block) Overlaps(other Block) bool {
	return b.Start <= other.End && other.Start <= b.End
}

// Precedes returns true if next begins at the offset immediately following the end of this block
func (b Block) Precedes(next Block) bool {
	return b.End+1 == next.Start
}

// WithOwner returns a copy of this block belonging to owner
func (b Block) WithOwner(owner int) Block {
	b.Owner = owner
	return b
}

// Split carves size offsets from the start of this block. head belongs to owner and begins where this block
// begins. tail is the unowned remainder; hasTail is false when size consumes the whole block. Split panics
// if size is not between 1 and the block's size.
func (b Block) Split(owner, size int) (head Block, tail Block, hasTail bool) {
	if size < 1 || size > b.Size() {
		panic(fmt.Sprintf("cannot split %d offsets from a block of size %d", size, b.Size()))
	}

	head = New(owner, b.Start, b.Start+size-1)
	if head.End == b.End {
		return head, Block{}, false
	}

	return head, Free(head.End+1, b.End), true
}

// Merge returns a block spanning from the start of this block to the end of next. The result keeps this
// block's owner.
func (b Block) Merge(next Block) Block {
	b.End = next.End
	return b
}

func (b Block) String() string {
	if b.IsFree() {
		return fmt.Sprintf("[%d,%d]", b.Start, b.End)
	}

	return fmt.Sprintf("P%d:[%d,%d]", b.Owner, b.Start, b.End)
}
