package block_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/partsim/memutils/block"
)

func TestBlockSplit(t *testing.T) {
	original := block.Free(20, 59)
	require.Equal(t, 40, original.Size())

	head, tail, hasTail := original.Split(3, 10)
	require.True(t, hasTail)
	require.Equal(t, block.New(3, 20, 29), head)
	require.Equal(t, block.Free(30, 59), tail)
	require.Equal(t, original.Size(), head.Size()+tail.Size())

	// The original value is untouched
	require.Equal(t, block.Free(20, 59), original)

	head, _, hasTail = original.Split(4, 40)
	require.False(t, hasTail)
	require.Equal(t, block.New(4, 20, 59), head)

	require.Panics(t, func() { original.Split(4, 41) })
	require.Panics(t, func() { original.Split(4, 0) })
}

func TestBlockAdjacency(t *testing.T) {
	left := block.Free(0, 9)
	right := block.Free(10, 19)
	far := block.Free(25, 29)

	require.True(t, left.Precedes(right))
	require.False(t, right.Precedes(left))
	require.False(t, right.Precedes(far))
	require.False(t, left.Overlaps(right))
	require.True(t, left.Overlaps(block.Free(9, 12)))

	require.Equal(t, block.Free(0, 19), left.Merge(right))
	require.Equal(t, 20, left.Merge(right).Size())
}

func TestBlockString(t *testing.T) {
	require.Equal(t, "[0,9]", block.Free(0, 9).String())
	require.Equal(t, "P2:[20,49]", block.New(2, 20, 49).String())
	require.True(t, block.Free(0, 0).IsValid())
	require.False(t, block.Free(5, 4).IsValid())
	require.False(t, block.Free(-1, 4).IsValid())
}
