package block

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/partsim/memutils"
	"golang.org/x/exp/slices"
)

// List is an ordered sequence of Blocks. The order is decided entirely by the caller through the insertion
// method it chooses: List never reorders its contents on its own. Every operation is a linear scan; lists
// are expected to hold at most a few hundred blocks.
type List struct {
	blocks []Block
}

// NewList creates a List holding the provided blocks in the provided order
func NewList(blocks ...Block) *List {
	return &List{blocks: slices.Clone(blocks)}
}

func (l *List) Len() int {
	return len(l.blocks)
}

func (l *List) IsEmpty() bool {
	return len(l.blocks) == 0
}

func (l *List) PushFront(b Block) {
	l.blocks = slices.Insert(l.blocks, 0, b)
}

func (l *List) PushBack(b Block) {
	l.blocks = append(l.blocks, b)
}

// InsertAt places b so that it ends up at the provided index. index may be equal to Len, which appends.
// Negative or larger indices are rejected with an error wrapping memutils.ErrInvalidRequest and the list is
// left unchanged.
func (l *List) InsertAt(b Block, index int) error {
	if index < 0 || index > len(l.blocks) {
		return errors.Wrapf(memutils.ErrInvalidRequest, "insertion index %d is out of bounds for a list of length %d", index, len(l.blocks))
	}

	l.blocks = slices.Insert(l.blocks, index, b)
	return nil
}

// InsertByAddress places b immediately before the first block whose start offset is greater than b's.
// Blocks sharing a start offset with b stay in front of it.
func (l *List) InsertByAddress(b Block) {
	index := len(l.blocks)
	for i, current := range l.blocks {
		if b.Start < current.Start {
			index = i
			break
		}
	}

	l.blocks = slices.Insert(l.blocks, index, b)
}

// InsertAscendingBySize places b behind every block that is no larger than it, so that equal-sized blocks
// keep the order they arrived in.
func (l *List) InsertAscendingBySize(b Block) {
	size := b.Size()
	index := len(l.blocks)
	for i, current := range l.blocks {
		if size < current.Size() {
			index = i
			break
		}
	}

	l.blocks = slices.Insert(l.blocks, index, b)
}

// InsertDescendingBySize places b in front of the first block that is no larger than it. Among equal-sized
// blocks the newest arrival comes first.
func (l *List) InsertDescendingBySize(b Block) {
	size := b.Size()
	index := len(l.blocks)
	for i, current := range l.blocks {
		if size >= current.Size() {
			index = i
			break
		}
	}

	l.blocks = slices.Insert(l.blocks, index, b)
}

// Front returns the first block without removing it
func (l *List) Front() (Block, bool) {
	return l.At(0)
}

func (l *List) At(index int) (Block, bool) {
	if index < 0 || index >= len(l.blocks) {
		return Block{}, false
	}

	return l.blocks[index], true
}

func (l *List) PopFront() (Block, bool) {
	return l.RemoveAt(0)
}

func (l *List) PopBack() (Block, bool) {
	return l.RemoveAt(len(l.blocks) - 1)
}

// RemoveAt removes and returns the block at index. If index does not refer to a block, the list is left
// unchanged and false is returned.
func (l *List) RemoveAt(index int) (Block, bool) {
	if index < 0 || index >= len(l.blocks) {
		return Block{}, false
	}

	b := l.blocks[index]
	l.blocks = slices.Delete(l.blocks, index, index+1)
	return b, true
}

// IndexFunc returns the index of the first block satisfying pred, or -1
func (l *List) IndexFunc(pred func(b Block) bool) int {
	return slices.IndexFunc(l.blocks, pred)
}

func (l *List) ContainsFunc(pred func(b Block) bool) bool {
	return l.IndexFunc(pred) >= 0
}

// IndexOf returns the index of the first block equal to b in owner, start and end, or -1
func (l *List) IndexOf(b Block) int {
	return slices.Index(l.blocks, b)
}

func (l *List) Contains(b Block) bool {
	return l.IndexOf(b) >= 0
}

// IndexBySize returns the index of the first block at least minSize offsets large, or -1
func (l *List) IndexBySize(minSize int) int {
	return l.IndexFunc(func(b Block) bool { return b.Size() >= minSize })
}

func (l *List) ContainsSize(minSize int) bool {
	return l.IndexBySize(minSize) >= 0
}

// IndexByOwner returns the index of the first block belonging to owner, or -1
func (l *List) IndexByOwner(owner int) int {
	return l.IndexFunc(func(b Block) bool { return b.Owner == owner })
}

func (l *List) ContainsOwner(owner int) bool {
	return l.IndexByOwner(owner) >= 0
}

// Blocks returns a copy of the list's contents in list order
func (l *List) Blocks() []Block {
	return slices.Clone(l.blocks)
}

// Visit calls visitor once for each block in list order, stopping at and returning the first error
func (l *List) Visit(visitor func(index int, b Block) error) error {
	for i, b := range l.blocks {
		err := visitor(i, b)
		if err != nil {
			return err
		}
	}

	return nil
}

// SumSize returns the combined size of every block in the list
func (l *List) SumSize() int {
	var sum int
	for _, b := range l.blocks {
		sum += b.Size()
	}

	return sum
}

func (l *List) Clear() {
	l.blocks = l.blocks[:0]
}
