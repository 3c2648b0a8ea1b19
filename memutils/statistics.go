package memutils

// Statistics totals the partitions visited and the allocations found in them
type Statistics struct {
	PartitionCount  int
	AllocationCount int
	PartitionBytes  int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	*s = Statistics{}
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.PartitionCount += other.PartitionCount
	s.AllocationCount += other.AllocationCount
	s.PartitionBytes += other.PartitionBytes
	s.AllocationBytes += other.AllocationBytes
}

// SizeRange tracks the smallest and largest of a set of positive sizes. The zero value is an empty range.
type SizeRange struct {
	Min int
	Max int
}

// Empty returns true if no size has been included yet
func (r SizeRange) Empty() bool {
	return r.Max == 0
}

// Include widens the range to cover size, which must be positive
func (r *SizeRange) Include(size int) {
	if r.Empty() || size < r.Min {
		r.Min = size
	}
	if size > r.Max {
		r.Max = size
	}
}

// Merge widens the range to cover every size other covers
func (r *SizeRange) Merge(other SizeRange) {
	if other.Empty() {
		return
	}

	r.Include(other.Min)
	r.Include(other.Max)
}

// DetailedStatistics extends Statistics with the free ranges of the visited partitions and the size
// spread of both free ranges and allocations. The zero value is ready to accumulate into.
type DetailedStatistics struct {
	Statistics
	FreeRangeCount  int
	FreeBytes       int
	AllocationSizes SizeRange
	FreeRangeSizes  SizeRange
}

func (s *DetailedStatistics) Clear() {
	*s = DetailedStatistics{}
}

func (s *DetailedStatistics) AddFreeRange(size int) {
	s.FreeRangeCount++
	s.FreeBytes += size
	s.FreeRangeSizes.Include(size)
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size
	s.AllocationSizes.Include(size)
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.AddStatistics(&other.Statistics)
	s.FreeRangeCount += other.FreeRangeCount
	s.FreeBytes += other.FreeBytes
	s.AllocationSizes.Merge(other.AllocationSizes)
	s.FreeRangeSizes.Merge(other.FreeRangeSizes)
}

// ExternalFragmentation returns how much of the free space lies outside the largest free range, from
// 0 (all free space is contiguous, or there is none) to just under 1.
func (s *DetailedStatistics) ExternalFragmentation() float64 {
	if s.FreeBytes == 0 {
		return 0
	}

	return 1 - float64(s.FreeRangeSizes.Max)/float64(s.FreeBytes)
}
