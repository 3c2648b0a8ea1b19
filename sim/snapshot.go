package sim

import (
	"encoding/binary"
	"sort"

	"github.com/vkngwrapper/partsim/memutils/block"
	"github.com/vkngwrapper/partsim/memutils/metadata"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/slices"
)

// Snapshot is a copy of a partition's block lists at one point in a simulation
type Snapshot struct {
	Policy        metadata.PlacementPolicy
	PartitionSize int
	// Free is the free list in its internal order: policy order, or address order right after a coalesce
	Free []block.Block
	// Allocated is the allocated list in ascending address order
	Allocated []block.Block
}

// Equal returns true if both snapshots have the same policy, size, and lists in the same order
func (s Snapshot) Equal(other Snapshot) bool {
	return s.Policy == other.Policy &&
		s.PartitionSize == other.PartitionSize &&
		slices.Equal(s.Free, other.Free) &&
		slices.Equal(s.Allocated, other.Allocated)
}

// FreeBytes returns the combined size of the free blocks
func (s Snapshot) FreeBytes() int {
	var sum int
	for _, b := range s.Free {
		sum += b.Size()
	}
	return sum
}

// LargestFree returns the largest free block, preferring the lowest address among equals
func (s Snapshot) LargestFree() (block.Block, bool) {
	var largest block.Block
	found := false

	for _, b := range s.Free {
		if !found || b.Size() > largest.Size() || (b.Size() == largest.Size() && b.Start < largest.Start) {
			largest = b
			found = true
		}
	}

	return largest, found
}

// Regions returns every block of the snapshot, free and allocated, in ascending address order
func (s Snapshot) Regions() []block.Block {
	regions := make([]block.Block, 0, len(s.Free)+len(s.Allocated))
	regions = append(regions, s.Allocated...)
	regions = append(regions, s.Free...)
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Start < regions[j].Start
	})

	return regions
}

// Fingerprint hashes the partition layout: the partition size and every block in address order. Free-list
// order and policy do not contribute, so two snapshots with the same blocks at the same offsets share a
// fingerprint even when they were produced by different policies.
func (s Snapshot) Fingerprint() uint64 {
	regions := s.Regions()
	buf := make([]byte, 0, 8+len(regions)*24)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.PartitionSize))

	for _, b := range regions {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Owner))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Start))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(b.End))
	}

	return xxh3.Hash(buf)
}
