// Package defrag implements coalescing of free partition space: free blocks are brought into address
// order and runs of address-adjacent blocks are merged into single blocks.
package defrag

// CoalesceStats contains basic metrics for one or more coalesce passes
type CoalesceStats struct {
	// BlocksBefore is the number of free blocks present before the pass
	BlocksBefore int
	// BlocksAfter is the number of free blocks remaining after the pass
	BlocksAfter int
	// Merges is the number of times a block was absorbed into its address-order predecessor
	Merges int
	// BytesMerged is the combined size of the blocks that were absorbed into a predecessor
	BytesMerged int
}

func (s *CoalesceStats) Add(stats CoalesceStats) {
	s.BlocksBefore += stats.BlocksBefore
	s.BlocksAfter += stats.BlocksAfter
	s.Merges += stats.Merges
	s.BytesMerged += stats.BytesMerged
}
